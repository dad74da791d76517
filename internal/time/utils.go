package timeutils

import (
	"fmt"
	"time"
)

const (
	// ISOMillis is the layout the management API expects for from/to.
	ISOMillis = "2006-01-02T15:04:05.000Z"

	// ArchiveStamp prefixes archived artifacts.
	ArchiveStamp = "2006-01-02_15-04-05"
)

// FormatISO formats t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOMillis)
}

// FormatDuration renders whole seconds as "H hours M minutes S seconds",
// dropping the hours part when it is zero.
func FormatDuration(seconds int64) string {
	hours, remainder := seconds/3600, seconds%3600
	minutes, secs := remainder/60, remainder%60
	if hours > 0 {
		return fmt.Sprintf("%d hours %d minutes %d seconds", hours, minutes, secs)
	}
	return fmt.Sprintf("%d minutes %d seconds", minutes, secs)
}

// QueryStep picks a range-query resolution that keeps the number of samples
// per series bounded for long runs.
func QueryStep(start, end time.Time, maxPoints int) time.Duration {
	if maxPoints <= 0 {
		maxPoints = 1
	}
	step := end.Sub(start) / time.Duration(maxPoints)
	switch {
	case step <= 15*time.Second:
		return 15 * time.Second
	case step <= time.Minute:
		return time.Minute
	case step <= 5*time.Minute:
		return 5 * time.Minute
	default:
		return step.Truncate(time.Minute)
	}
}
