package models

import "time"

const (
	// SkewTolerance trims both ends of the run window before it is used as
	// a telemetry query range.
	SkewTolerance = 30 * time.Second

	// MinRunDuration is the shortest run that yields usable telemetry.
	MinRunDuration = 120 * time.Second
)

// RunWindow is the detected start, end and operation count of one benchmark run.
type RunWindow struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Operations int64     `json:"operations"`
}

func (w RunWindow) AdjustedStart() time.Time {
	return w.Start.Add(SkewTolerance)
}

func (w RunWindow) AdjustedEnd() time.Time {
	return w.End.Add(-SkewTolerance)
}

// ElapsedSeconds is the run duration truncated to whole seconds.
func (w RunWindow) ElapsedSeconds() int64 {
	return int64(w.End.Sub(w.Start) / time.Second)
}

// Throughput is operations per second over the whole window.
func (w RunWindow) Throughput() float64 {
	elapsed := w.ElapsedSeconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(w.Operations) / float64(elapsed)
}

// LongerThan reports whether the window lasts strictly more than min, in
// whole seconds.
func (w RunWindow) LongerThan(min time.Duration) bool {
	return w.ElapsedSeconds() > int64(min/time.Second)
}

// MetricSeries maps a metric name to its samples in time order.
type MetricSeries map[string][]float64
