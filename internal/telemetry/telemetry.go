package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/imishinist/nnperf/internal/cm"
	"github.com/imishinist/nnperf/internal/models"
)

// Source fetches the configured metrics for a query window.
type Source interface {
	Fetch(ctx context.Context, start, end time.Time) (models.MetricSeries, error)
}

// CMSource reads time series from the management API for one entity, such
// as the NameNode role being measured.
type CMSource struct {
	client  *cm.Client
	entity  string
	metrics []string
}

func NewCMSource(client *cm.Client, entity string, metrics []string) *CMSource {
	return &CMSource{client: client, entity: entity, metrics: metrics}
}

func (s *CMSource) Fetch(ctx context.Context, start, end time.Time) (models.MetricSeries, error) {
	return s.client.TimeSeries(ctx, s.metrics, s.entity, start, end)
}

// Average returns the mean of samples.
func Average(samples []float64) (float64, error) {
	mean, err := stats.Mean(samples)
	if err != nil {
		return 0, fmt.Errorf("failed to average samples: %w", err)
	}
	return mean, nil
}

// FormatAverage renders an averaged metric with three decimals.
func FormatAverage(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// Averages reduces each named metric to its formatted mean. Every name must
// have at least one sample.
func Averages(series models.MetricSeries, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		samples, ok := series[name]
		if !ok || len(samples) == 0 {
			return nil, fmt.Errorf("no samples for metric %s", name)
		}
		mean, err := Average(samples)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", name, err)
		}
		out[name] = FormatAverage(mean)
	}
	return out, nil
}
