// Package omni provides OMNI solar-wind data processing utilities.
// This package parses the fixed-column ASCII records distributed by SPDF,
// filters them by time window and missing-value sentinels, and hands
// normalized rows to the derivation and sink packages.
package omni

import (
	"fmt"
	"sort"
)

// =============================================================================
// Column Layout (OMNI high-resolution 1-min ASCII format)
// =============================================================================

// Time fields every column map must resolve.
const (
	FieldYear   = "Year"
	FieldDay    = "Day"
	FieldHour   = "Hour"
	FieldMinute = "Minute"
)

// Canonical measurement field names (as written in the CSV header).
const (
	FieldBx               = "Bx_nT_GSE_GSM"
	FieldBy               = "By_nT_GSE"
	FieldBz               = "Bz_nT_GSE"
	FieldFlowSpeed        = "Flow_Speed_km_s"
	FieldProtonDensity    = "Proton_Density_n_cc"
	FieldTemperature      = "Temperature_K"
	FieldFlowPressure     = "Flow_Pressure_nPa"
	FieldPlasmaBeta       = "Plasma_Beta"
	FieldAlfvenMachNumber = "Alfven_Mach_Number"
	FieldAEIndex          = "AE_index_nT"
	FieldSYMHIndex        = "SYM_H_index_nT"
)

// Zero-based column positions in the SPDF omni_min*.asc files.
const (
	ColYear             = 0
	ColDay              = 1
	ColHour             = 2
	ColMinute           = 3
	ColBx               = 14
	ColBy               = 15
	ColBz               = 16
	ColFlowSpeed        = 21
	ColProtonDensity    = 25
	ColTemperature      = 26
	ColFlowPressure     = 27
	ColPlasmaBeta       = 29
	ColAlfvenMachNumber = 30
	ColAEIndex          = 37
	ColSYMHIndex        = 41
)

// ColumnMap resolves field names to zero-based token positions.
// It is immutable once built; use NewColumnMap to construct one.
type ColumnMap struct {
	index map[string]int
}

// NewColumnMap copies the given table into an immutable ColumnMap.
// Negative positions are rejected.
func NewColumnMap(table map[string]int) (ColumnMap, error) {
	index := make(map[string]int, len(table))
	for name, pos := range table {
		if pos < 0 {
			return ColumnMap{}, fmt.Errorf("column %q: negative index %d", name, pos)
		}
		index[name] = pos
	}
	return ColumnMap{index: index}, nil
}

// DefaultOMNIColumns returns the column table of the 1-min OMNI format.
func DefaultOMNIColumns() ColumnMap {
	cm, _ := NewColumnMap(map[string]int{
		FieldYear:             ColYear,
		FieldDay:              ColDay,
		FieldHour:             ColHour,
		FieldMinute:           ColMinute,
		FieldBx:               ColBx,
		FieldBy:               ColBy,
		FieldBz:               ColBz,
		FieldFlowSpeed:        ColFlowSpeed,
		FieldProtonDensity:    ColProtonDensity,
		FieldTemperature:      ColTemperature,
		FieldFlowPressure:     ColFlowPressure,
		FieldPlasmaBeta:       ColPlasmaBeta,
		FieldAlfvenMachNumber: ColAlfvenMachNumber,
		FieldAEIndex:          ColAEIndex,
		FieldSYMHIndex:        ColSYMHIndex,
	})
	return cm
}

// Index returns the position of name and whether it is mapped.
func (c ColumnMap) Index(name string) (int, bool) {
	pos, ok := c.index[name]
	return pos, ok
}

// Resolve maps every name to its position, failing on the first unknown name.
func (c ColumnMap) Resolve(names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		pos, ok := c.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
		}
		out[i] = pos
	}
	return out, nil
}

// Names returns the mapped field names ordered by column position.
func (c ColumnMap) Names() []string {
	names := make([]string, 0, len(c.index))
	for name := range c.index {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := c.index[names[i]], c.index[names[j]]
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

// Len returns the number of mapped fields.
func (c ColumnMap) Len() int {
	return len(c.index)
}

// =============================================================================
// Field Sets
// =============================================================================

// FullFields is the wide field selection (all measurement columns).
var FullFields = []string{
	FieldBx,
	FieldBy,
	FieldBz,
	FieldFlowSpeed,
	FieldProtonDensity,
	FieldTemperature,
	FieldFlowPressure,
	FieldPlasmaBeta,
	FieldAlfvenMachNumber,
	FieldAEIndex,
	FieldSYMHIndex,
}

// CouplingFields is the narrow selection used for energy coupling studies.
var CouplingFields = []string{
	FieldBx,
	FieldBy,
	FieldBz,
	FieldFlowSpeed,
	FieldProtonDensity,
	FieldTemperature,
}

// =============================================================================
// Missing-Value Sentinels
// =============================================================================

// SentinelSet holds exact-match tokens that mark missing data.
type SentinelSet map[string]struct{}

// NewSentinelSet builds a set from the given tokens.
func NewSentinelSet(tokens ...string) SentinelSet {
	s := make(SentinelSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// DefaultSentinels returns the OMNI fill values.
func DefaultSentinels() SentinelSet {
	return NewSentinelSet("99999.9", "999999", "9999.99", "999.99", "99999")
}

// Contains reports whether token is a sentinel (exact string match).
func (s SentinelSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}
