package omni

import (
	"bytes"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const omniTokenCount = 46

// omniLine builds one OMNI record with zeros everywhere except the time
// fields and the given column overrides.
func omniLine(year, day, hour, minute int, cols map[int]string) string {
	tokens := make([]string, omniTokenCount)
	for i := range tokens {
		tokens[i] = "0"
	}
	tokens[ColYear] = strconv.Itoa(year)
	tokens[ColDay] = strconv.Itoa(day)
	tokens[ColHour] = strconv.Itoa(hour)
	tokens[ColMinute] = strconv.Itoa(minute)
	for c, v := range cols {
		tokens[c] = v
	}
	return strings.Join(tokens, "  ")
}

func mustWindow(t *testing.T, start, end time.Time, hours ...int) TimeWindow {
	t.Helper()
	w, err := NewTimeWindow(start, end)
	require.NoError(t, err)
	if len(hours) == 2 {
		w, err = w.WithHours(hours[0], hours[1])
		require.NoError(t, err)
	}
	return w
}

func novemberWindow(t *testing.T, hours ...int) TimeWindow {
	return mustWindow(t,
		time.Date(2022, 11, 23, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 11, 27, 0, 0, 0, 0, time.UTC),
		hours...)
}

func TestRecordTime(t *testing.T) {
	tests := []struct {
		name                    string
		year, day, hour, minute int
		want                    time.Time
	}{
		{"day 328 is Nov 24", 2022, 328, 10, 15, time.Date(2022, 11, 24, 10, 15, 0, 0, time.UTC)},
		{"day 1 is Jan 1", 2022, 1, 0, 0, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"leap year day 60 is Feb 29", 2024, 60, 23, 59, time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)},
		{"day 365 of non-leap year", 2022, 365, 12, 0, time.Date(2022, 12, 31, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecordTime(tt.year, tt.day, tt.hour, tt.minute)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}

	assert.Equal(t, "2022-11-24 10:15", RecordTime(2022, 328, 10, 15).Format(DatetimeLayout))
}

func TestFilterRecordsEndToEnd(t *testing.T) {
	input := strings.Join([]string{
		"YYYY DOY HR MN ...",
		omniLine(2022, 327, 12, 0, map[int]string{
			ColBx:        "1.0",
			ColBy:        "2.0",
			ColBz:        "3.0",
			ColFlowSpeed: "400",
		}),
	}, "\n") + "\n"

	fields := []string{FieldBx, FieldBy, FieldBz, FieldFlowSpeed}
	res, err := FilterRecords(strings.NewReader(input), FilterConfig{
		Columns:   DefaultOMNIColumns(),
		Fields:    fields,
		Window:    novemberWindow(t, 9, 16),
		Sentinels: DefaultSentinels(),
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fields, res.Rows))
	assert.Equal(t,
		"Datetime,Bx_nT_GSE_GSM,By_nT_GSE,Bz_nT_GSE,Flow_Speed_km_s\n"+
			"2022-11-23 12:00,1.0,2.0,3.0,400\n",
		buf.String())

	assert.Equal(t, int64(2), res.Stats.LinesRead)
	assert.Equal(t, int64(1), res.Stats.HeaderLines)
	assert.Equal(t, int64(1), res.Stats.KeptRows)
}

func TestFilterRecordsSentinelDropsWholeRow(t *testing.T) {
	valid := map[int]string{ColBx: "1.5", ColBy: "-2.0", ColBz: "0.3", ColFlowSpeed: "420.1", ColProtonDensity: "5.2"}
	missing := map[int]string{ColBx: "1.5", ColBy: "-2.0", ColBz: "0.3", ColFlowSpeed: "420.1", ColProtonDensity: "99999.9"}

	input := omniLine(2022, 328, 10, 0, valid) + "\n" +
		omniLine(2022, 328, 10, 1, missing) + "\n"

	res, err := FilterRecords(strings.NewReader(input), FilterConfig{
		Columns:   DefaultOMNIColumns(),
		Fields:    []string{FieldBx, FieldBy, FieldBz, FieldFlowSpeed, FieldProtonDensity},
		Window:    novemberWindow(t),
		Sentinels: DefaultSentinels(),
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0, res.Rows[0].Timestamp.Minute())
	assert.Equal(t, int64(1), res.Stats.SentinelRows)
}

func TestFilterRecordsSentinelOnlyChecksRequestedFields(t *testing.T) {
	line := omniLine(2022, 328, 10, 0, map[int]string{ColBx: "1.0", ColSYMHIndex: "99999"})

	res, err := FilterRecords(strings.NewReader(line), FilterConfig{
		Columns:   DefaultOMNIColumns(),
		Fields:    []string{FieldBx},
		Window:    novemberWindow(t),
		Sentinels: DefaultSentinels(),
	})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestFilterRecordsWindowBounds(t *testing.T) {
	tests := []struct {
		name              string
		day, hour, minute int
		hours             []int
		wantKept          bool
	}{
		{"start instant is inclusive", 327, 0, 0, nil, true},
		{"end instant is inclusive", 331, 0, 0, nil, true},
		{"one minute past end", 331, 0, 1, nil, false},
		{"day before start", 326, 23, 59, nil, false},
		{"hour window start inclusive", 328, 9, 0, []int{9, 16}, true},
		{"hour window end inclusive", 328, 16, 59, []int{9, 16}, true},
		{"before hour window", 328, 8, 59, []int{9, 16}, false},
		{"after hour window", 328, 17, 0, []int{9, 16}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := omniLine(2022, tt.day, tt.hour, tt.minute, map[int]string{ColBz: "-4.2"})
			res, err := FilterRecords(strings.NewReader(line), FilterConfig{
				Columns:   DefaultOMNIColumns(),
				Fields:    []string{FieldBz},
				Window:    novemberWindow(t, tt.hours...),
				Sentinels: DefaultSentinels(),
			})
			require.NoError(t, err)
			if tt.wantKept {
				assert.Len(t, res.Rows, 1)
			} else {
				assert.Empty(t, res.Rows)
				assert.Equal(t, int64(1), res.Stats.OutOfWindowRows)
			}
		})
	}
}

func TestFilterRecordsMalformedLinesAreSkipped(t *testing.T) {
	input := strings.Join([]string{
		"2022 328 10",
		omniLine(2022, 328, 10, 0, map[int]string{ColBz: "1.0"}),
		omniLine(2022, 328, 10, 1, map[int]string{ColBz: "abc"}),
		strings.Replace(omniLine(2022, 328, 10, 2, nil), "2022  328", "2022  x28", 1),
		omniLine(2022, 328, 10, 3, map[int]string{ColBz: "2.0"}),
	}, "\n")

	res, err := FilterRecords(strings.NewReader(input), FilterConfig{
		Columns:   DefaultOMNIColumns(),
		Fields:    []string{FieldBz},
		Window:    novemberWindow(t),
		Sentinels: DefaultSentinels(),
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(3), res.Stats.MalformedRows)
	require.Len(t, res.Stats.Errors, 3)
	for _, e := range res.Stats.Errors {
		assert.True(t, errors.Is(e, ErrMalformedRecord))
	}

	var mre *MalformedRecordError
	require.True(t, errors.As(res.Stats.Errors[0], &mre))
	assert.Equal(t, int64(1), mre.Line)
}

func TestFilterRecordsKeepsLimitedErrors(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxErrorsToKeep+5; i++ {
		sb.WriteString("2022 328 10 0\n")
	}

	res, err := FilterRecords(strings.NewReader(sb.String()), FilterConfig{
		Columns:   DefaultOMNIColumns(),
		Fields:    []string{FieldBz},
		Window:    novemberWindow(t),
		Sentinels: DefaultSentinels(),
	})
	require.NoError(t, err)
	assert.Len(t, res.Stats.Errors, MaxErrorsToKeep)
	assert.Equal(t, int64(5), res.Stats.SuppressedErrors())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("should not be read")
}

func TestFilterRecordsConfigErrorsFailBeforeReading(t *testing.T) {
	w := novemberWindow(t)

	_, err := FilterRecords(failingReader{}, FilterConfig{
		Columns: DefaultOMNIColumns(),
		Fields:  []string{FieldBz, "Electric_Field_mV_m"},
		Window:  w,
	})
	assert.ErrorIs(t, err, ErrMissingField)

	noTime, err := NewColumnMap(map[string]int{FieldBz: ColBz})
	require.NoError(t, err)
	_, err = FilterRecords(failingReader{}, FilterConfig{Columns: noTime, Fields: []string{FieldBz}, Window: w})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = FilterRecords(failingReader{}, FilterConfig{Columns: DefaultOMNIColumns(), Window: w})
	assert.ErrorIs(t, err, ErrNoFields)

	inverted := TimeWindow{Start: w.End, End: w.Start}
	_, err = FilterRecords(failingReader{}, FilterConfig{Columns: DefaultOMNIColumns(), Fields: []string{FieldBz}, Window: inverted})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestFilterRecordsReadErrorReturnsPartialRows(t *testing.T) {
	line := omniLine(2022, 328, 10, 0, map[int]string{ColBz: "1.0"}) + "\n"
	r := &errAfterReader{data: []byte(line)}

	res, err := FilterRecords(r, FilterConfig{
		Columns: DefaultOMNIColumns(),
		Fields:  []string{FieldBz},
		Window:  novemberWindow(t),
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Rows, 1)
}

type errAfterReader struct {
	data []byte
	done bool
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("disk gone")
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestFilterRecordsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sentinels := DefaultSentinels()
	tokens := []string{"99999.9", "999999", "9999.99", "999.99", "99999"}

	var sb strings.Builder
	sb.WriteString(" header line with leading space\n")
	for day := 320; day <= 335; day++ {
		for hour := 0; hour < 24; hour++ {
			cols := map[int]string{
				ColBx:            strconv.FormatFloat(rng.NormFloat64()*5, 'f', 2, 64),
				ColFlowSpeed:     strconv.FormatFloat(350+rng.Float64()*200, 'f', 1, 64),
				ColProtonDensity: strconv.FormatFloat(rng.Float64()*20, 'f', 2, 64),
			}
			if rng.Intn(5) == 0 {
				cols[ColFlowSpeed] = tokens[rng.Intn(len(tokens))]
			}
			sb.WriteString(omniLine(2022, day, hour, rng.Intn(60), cols))
			sb.WriteByte('\n')
		}
	}
	input := sb.String()

	cfg := FilterConfig{
		Columns:   DefaultOMNIColumns(),
		Fields:    []string{FieldBx, FieldFlowSpeed, FieldProtonDensity},
		Window:    novemberWindow(t, 9, 16),
		Sentinels: sentinels,
	}

	first, err := FilterRecords(strings.NewReader(input), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, first.Rows)

	for _, row := range first.Rows {
		assert.False(t, row.Timestamp.Before(cfg.Window.Start))
		assert.False(t, row.Timestamp.After(cfg.Window.End))
		assert.GreaterOrEqual(t, row.Timestamp.Hour(), 9)
		assert.LessOrEqual(t, row.Timestamp.Hour(), 16)
		for _, f := range row.Fields {
			assert.False(t, sentinels.Contains(f.Raw), "sentinel %q leaked in %s", f.Raw, f.Name)
		}
	}

	// Output preserves source order
	for i := 1; i < len(first.Rows); i++ {
		assert.True(t, first.Rows[i-1].Timestamp.Before(first.Rows[i].Timestamp))
	}

	st := first.Stats
	assert.Equal(t, st.LinesRead, st.HeaderLines+st.MalformedRows+st.OutOfWindowRows+st.SentinelRows+st.KeptRows)

	second, err := FilterRecords(strings.NewReader(input), cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilteredRowValue(t *testing.T) {
	row := FilteredRow{Fields: []Field{{Name: FieldBx, Raw: "1.5", Value: 1.5}}}

	v, ok := row.Value(FieldBx)
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = row.Value(FieldBy)
	assert.False(t, ok)
}
