package omni

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2022, 11, 25, 18, 30, 0, 0, time.UTC)
	for _, s := range []string{"2022-11-25 18:30", "2022-11-25T18:30", "2022-11-25T18:30:00Z", " 2022-11-25 18:30 "} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	got, err := ParseTime("2022-11-25")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 11, 25, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseTime("25/11/2022")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2022-11-23", "2022-11-27", "18-21")
	require.NoError(t, err)
	require.NotNil(t, w.Hours)
	assert.Equal(t, HourRange{Start: 18, End: 21}, *w.Hours)
	assert.True(t, w.Contains(time.Date(2022, 11, 24, 21, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2022, 11, 24, 22, 0, 0, 0, time.UTC)))

	w, err = ParseWindow("2022-11-23", "2022-11-27", "")
	require.NoError(t, err)
	assert.Nil(t, w.Hours)

	for _, tc := range [][3]string{
		{"2022-11-27", "2022-11-23", ""},
		{"2022-11-23", "2022-11-27", "21-18"},
		{"2022-11-23", "2022-11-27", "18"},
		{"2022-11-23", "2022-11-27", "0-24"},
		{"bad", "2022-11-27", ""},
	} {
		_, err := ParseWindow(tc[0], tc[1], tc[2])
		assert.ErrorIs(t, err, ErrInvalidWindow, "%v", tc)
	}
}

func TestParseFields(t *testing.T) {
	got, err := ParseFields("coupling")
	require.NoError(t, err)
	assert.Equal(t, CouplingFields, got)

	got, err = ParseFields("")
	require.NoError(t, err)
	assert.Equal(t, FullFields, got)

	got, err = ParseFields("Bz_nT_GSE, Flow_Speed_km_s")
	require.NoError(t, err)
	assert.Equal(t, []string{FieldBz, FieldFlowSpeed}, got)

	_, err = ParseFields(" , ")
	assert.ErrorIs(t, err, ErrNoFields)
}
