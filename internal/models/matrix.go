package models

import "fmt"

// Matrix lists the combinations to benchmark and the telemetry metrics to
// collect for each of them.
type Matrix struct {
	Variants []ConfigKey `json:"variants" yaml:"variants"`
	Metrics  []string    `json:"metrics" yaml:"metrics"`
}

// DefaultMatrix covers all four toggle combinations.
func DefaultMatrix() *Matrix {
	return &Matrix{
		Variants: []ConfigKey{
			{RMS: true, Optimization: true},
			{RMS: false, Optimization: false},
			{RMS: false, Optimization: true},
			{RMS: true, Optimization: false},
		},
		Metrics: []string{
			"rpc_processing_time_avg_time",
			"rpc_queue_time_avg_time",
		},
	}
}

func (m *Matrix) Validate() error {
	if len(m.Variants) == 0 {
		return fmt.Errorf("at least one variant is required")
	}
	seen := make(map[ConfigKey]bool)
	for _, v := range m.Variants {
		if seen[v] {
			return fmt.Errorf("duplicate variant: %s", v)
		}
		seen[v] = true
	}

	if len(m.Metrics) == 0 {
		return fmt.Errorf("at least one metric is required")
	}
	names := make(map[string]bool)
	for _, name := range m.Metrics {
		if name == "" {
			return fmt.Errorf("metric name must not be empty")
		}
		if names[name] {
			return fmt.Errorf("duplicate metric: %s", name)
		}
		names[name] = true
	}
	return nil
}
