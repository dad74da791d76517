package models

import "fmt"

// ConfigKey selects one configuration payload: the RMS toggle and the
// optimization toggle of the Ranger HDFS plugin.
type ConfigKey struct {
	RMS          bool `json:"rms" yaml:"rms"`
	Optimization bool `json:"optimization" yaml:"optimization"`
}

// Label renders a toggle the way payload files and archive dirs name it.
func Label(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}

func (k ConfigKey) String() string {
	return fmt.Sprintf("rms=%s optimization=%s", Label(k.RMS), Label(k.Optimization))
}

// RunConfiguration describes one iteration of the sequencer. It is built once
// per combination and never modified.
type RunConfiguration struct {
	Key ConfigKey

	// ReadOps and TotalOps label the read/write mix of the generated load.
	ReadOps  int
	TotalOps int

	// Raw op counts used for the archive directory name and for deciding
	// whether deleted files have to be recovered.
	ReadCount   int
	WriteCount  int
	DeleteCount int
}

// ReadWriteMix returns a label such as "300_read_700_write".
func (c RunConfiguration) ReadWriteMix() string {
	return fmt.Sprintf("%d_read_%d_write", c.ReadOps, c.TotalOps-c.ReadOps)
}

// Destructive reports whether the generated load deletes files.
func (c RunConfiguration) Destructive() bool {
	return c.DeleteCount > 0
}

// RunRecord is one row of the results table. Keys fixes the column order.
type RunRecord struct {
	Keys   []string
	Values map[string]string
}

func NewRunRecord() *RunRecord {
	return &RunRecord{Values: make(map[string]string)}
}

// Set appends key to the schema on first use and stores its value.
func (r *RunRecord) Set(key, value string) {
	if _, exists := r.Values[key]; !exists {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Row returns the values in schema order.
func (r *RunRecord) Row() []string {
	row := make([]string, len(r.Keys))
	for i, key := range r.Keys {
		row[i] = r.Values[key]
	}
	return row
}

// IndexRange identifies the files to restore after a destructive run.
type IndexRange struct {
	Lowest  int
	Highest int
}
