package derive

import (
	"errors"
	"fmt"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// ErrUnknownUnit is returned when a field has no conversion factor.
var ErrUnknownUnit = errors.New("no unit conversion for field")

// Conversion factors to SI.
const (
	NanoteslaToTesla = 1e-9
	KmPerSecToMPerS  = 1e3
	PerCCToPerM3     = 1e6
	NanopascalToPa   = 1e-9
)

// UnitTable maps a field name to the multiplicative factor that converts it
// to SI units.
type UnitTable map[string]float64

// DefaultUnitTable returns SI conversions for the OMNI measurement fields.
// Dimensionless fields (beta, Mach number) and kelvin convert with factor 1.
func DefaultUnitTable() UnitTable {
	return UnitTable{
		omni.FieldBx:               NanoteslaToTesla,
		omni.FieldBy:               NanoteslaToTesla,
		omni.FieldBz:               NanoteslaToTesla,
		omni.FieldFlowSpeed:        KmPerSecToMPerS,
		omni.FieldProtonDensity:    PerCCToPerM3,
		omni.FieldTemperature:      1,
		omni.FieldFlowPressure:     NanopascalToPa,
		omni.FieldPlasmaBeta:       1,
		omni.FieldAlfvenMachNumber: 1,
		omni.FieldAEIndex:          NanoteslaToTesla,
		omni.FieldSYMHIndex:        NanoteslaToTesla,
	}
}

// Convert scales v by the factor registered for field.
func (t UnitTable) Convert(field string, v float64) (float64, error) {
	f, ok := t[field]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, field)
	}
	return v * f, nil
}

// ConvertRows returns copies of rows with every value converted. Raw tokens
// are kept as read so the source text stays traceable.
func (t UnitTable) ConvertRows(rows []omni.FilteredRow) ([]omni.FilteredRow, error) {
	out := make([]omni.FilteredRow, len(rows))
	for i, row := range rows {
		fields := make([]omni.Field, len(row.Fields))
		for j, f := range row.Fields {
			v, err := t.Convert(f.Name, f.Value)
			if err != nil {
				return nil, err
			}
			fields[j] = omni.Field{Name: f.Name, Raw: f.Raw, Value: v}
		}
		out[i] = omni.FilteredRow{Timestamp: row.Timestamp, Fields: fields}
	}
	return out, nil
}

// Series extracts the named field from every row.
func Series(rows []omni.FilteredRow, name string) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		v, ok := row.Value(name)
		if !ok {
			return nil, fmt.Errorf("row %d: %w: %q", i, omni.ErrMissingField, name)
		}
		out[i] = v
	}
	return out, nil
}
