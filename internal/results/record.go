package results

import (
	"fmt"

	"github.com/imishinist/nnperf/internal/models"
	"github.com/imishinist/nnperf/internal/telemetry"
	timeutils "github.com/imishinist/nnperf/internal/time"
)

// Column names that follow the per-metric averages in every row.
const (
	ColumnStartTime           = "start_time"
	ColumnEndTime             = "end_time"
	ColumnTPS                 = "tps"
	ColumnRMSEnabled          = "rms_enabled"
	ColumnOptimizationEnabled = "optimization_enabled"
	ColumnReadWriteMix        = "read_write_mix"
)

// Merge builds the results row for one run. The columns are the metric names
// in the given order followed by the fixed run columns, so every run merged
// with the same metric list yields the same schema.
func Merge(w *models.RunWindow, series models.MetricSeries, cfg models.RunConfiguration, metricNames []string) (*models.RunRecord, error) {
	averages, err := telemetry.Averages(series, metricNames)
	if err != nil {
		return nil, fmt.Errorf("failed to merge run results: %w", err)
	}

	record := models.NewRunRecord()
	for _, name := range metricNames {
		record.Set(name, averages[name])
	}
	record.Set(ColumnStartTime, timeutils.FormatISO(w.Start))
	record.Set(ColumnEndTime, timeutils.FormatISO(w.End))
	record.Set(ColumnTPS, fmt.Sprintf("%.3f", w.Throughput()))
	record.Set(ColumnRMSEnabled, models.Label(cfg.Key.RMS))
	record.Set(ColumnOptimizationEnabled, models.Label(cfg.Key.Optimization))
	record.Set(ColumnReadWriteMix, cfg.ReadWriteMix())
	return record, nil
}
