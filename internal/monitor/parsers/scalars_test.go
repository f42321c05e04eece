package parsers

import (
	stderrors "errors"
	"testing"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalars(t *testing.T) {
	out := `{"loss": {"steps": [0, 10], "values": [1.5, 0.75], "wall_times": [1700000000.5, 1700000010.25]},
	         "lr": {"steps": [], "values": [], "wall_times": []}}`

	got, err := ParseScalars(out)
	require.NoError(t, err)

	require.Contains(t, got, "loss")
	assert.Equal(t, []int64{0, 10}, got["loss"].Steps)
	assert.Equal(t, []float64{1.5, 0.75}, got["loss"].Values)
	assert.Equal(t, []float64{1700000000.5, 1700000010.25}, got["loss"].WallTimes)
	assert.Empty(t, got["lr"].Steps)
}

func TestParseScalars_Empty(t *testing.T) {
	got, err := ParseScalars("{}\n")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseScalars_Reported(t *testing.T) {
	_, err := ParseScalars(`{"error": "x"}`)

	var reported *ReportedError
	require.True(t, stderrors.As(err, &reported))
	assert.Equal(t, "x", reported.Message)
	assert.False(t, errors.IsCode(err, errors.ErrParse))
}

func TestParseScalars_ReportedNonString(t *testing.T) {
	_, err := ParseScalars(`{"error": {"code": 3}}`)

	var reported *ReportedError
	require.True(t, stderrors.As(err, &reported))
	assert.Equal(t, `{"code": 3}`, reported.Message)
}

func TestParseScalars_Invalid(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"not json", "Traceback (most recent call last):"},
		{"array", "[1, 2]"},
		{"series wrong type", `{"loss": 3}`},
		{"float step", `{"loss": {"steps": [1.5], "values": [1], "wall_times": [1]}}`},
		{"ragged", `{"loss": {"steps": [1, 2], "values": [1], "wall_times": [1, 2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScalars(tt.out)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrParse))
		})
	}
}

func TestCopySeries(t *testing.T) {
	s := Series{Steps: []int64{1}, Values: []float64{2}, WallTimes: []float64{3}}
	c := CopySeries(s)
	c.Values[0] = 99
	assert.Equal(t, 2.0, s.Values[0])
}

func TestCopySeries_EmptyStaysNonNil(t *testing.T) {
	for _, s := range []Series{{}, {Steps: []int64{}, Values: []float64{}, WallTimes: []float64{}}} {
		c := CopySeries(s)
		assert.NotNil(t, c.Steps)
		assert.NotNil(t, c.Values)
		assert.NotNil(t, c.WallTimes)
	}
}
