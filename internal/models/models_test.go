package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	w := RunWindow{Start: start, End: start.Add(5 * time.Minute), Operations: 1200}

	assert.Equal(t, int64(300), w.ElapsedSeconds())
	assert.Equal(t, 4.0, w.Throughput())
	assert.Equal(t, start.Add(30*time.Second), w.AdjustedStart())
	assert.Equal(t, start.Add(5*time.Minute-30*time.Second), w.AdjustedEnd())
}

func TestRunWindow_AdjustmentIndependentOfDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, d := range []time.Duration{time.Second, 90 * time.Second, 3 * time.Hour} {
		w := RunWindow{Start: start, End: start.Add(d)}
		assert.Equal(t, 30*time.Second, w.AdjustedStart().Sub(w.Start))
		assert.Equal(t, 30*time.Second, w.End.Sub(w.AdjustedEnd()))
	}
}

func TestRunWindow_LongerThan(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := map[string]struct {
		elapsed time.Duration
		want    bool
	}{
		"90 seconds":  {elapsed: 90 * time.Second, want: false},
		"120 seconds": {elapsed: 120 * time.Second, want: false},
		"121 seconds": {elapsed: 121 * time.Second, want: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			w := RunWindow{Start: start, End: start.Add(tc.elapsed)}
			assert.Equal(t, tc.want, w.LongerThan(MinRunDuration))
		})
	}
}

func TestRunConfiguration(t *testing.T) {
	cfg := RunConfiguration{ReadOps: 300, TotalOps: 1000, DeleteCount: 0}
	assert.Equal(t, "300_read_700_write", cfg.ReadWriteMix())
	assert.False(t, cfg.Destructive())

	cfg.DeleteCount = 5
	assert.True(t, cfg.Destructive())
}

func TestRunRecord(t *testing.T) {
	r := NewRunRecord()
	r.Set("b", "1")
	r.Set("a", "2")
	r.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, r.Keys)
	assert.Equal(t, []string{"3", "2"}, r.Row())
}

func TestDefaultMatrix(t *testing.T) {
	m := DefaultMatrix()
	require.NoError(t, m.Validate())
	require.Len(t, m.Variants, 4)

	seen := make(map[ConfigKey]bool)
	for _, v := range m.Variants {
		seen[v] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, ConfigKey{RMS: true, Optimization: true}, m.Variants[0])
}

func TestMatrix_Validate(t *testing.T) {
	assert.Error(t, (&Matrix{Metrics: []string{"a"}}).Validate())
	assert.Error(t, (&Matrix{Variants: []ConfigKey{{}}}).Validate())
	assert.Error(t, (&Matrix{Variants: []ConfigKey{{}}, Metrics: []string{"a", "a"}}).Validate())
	assert.Error(t, (&Matrix{Variants: []ConfigKey{{}}, Metrics: []string{""}}).Validate())
	assert.NoError(t, (&Matrix{Variants: []ConfigKey{{}}, Metrics: []string{"a"}}).Validate())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "yes", Label(true))
	assert.Equal(t, "no", Label(false))
	assert.Equal(t, "rms=yes optimization=no", ConfigKey{RMS: true}.String())
}
