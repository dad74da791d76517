package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
	timeutils "github.com/imishinist/nnperf/internal/time"
)

const maxPointsPerSeries = 250

// PrometheusSource runs one range query per metric. Each metric name is used
// as the PromQL expression, so recording rules can map them to any query.
type PrometheusSource struct {
	api     v1.API
	metrics []string
}

func NewPrometheusSource(address string, metrics []string) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &PrometheusSource{api: v1.NewAPI(client), metrics: metrics}, nil
}

func (s *PrometheusSource) Fetch(ctx context.Context, start, end time.Time) (models.MetricSeries, error) {
	r := v1.Range{
		Start: start,
		End:   end,
		Step:  timeutils.QueryStep(start, end, maxPointsPerSeries),
	}

	series := make(models.MetricSeries)
	for _, name := range s.metrics {
		value, warnings, err := s.api.QueryRange(ctx, name, r)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", name, err)
		}
		for _, w := range warnings {
			log.WithField("metric", name).Warn(w)
		}

		matrix, ok := value.(model.Matrix)
		if !ok {
			return nil, fmt.Errorf("unexpected result type %s for %s", value.Type(), name)
		}
		for _, stream := range matrix {
			for _, pair := range stream.Values {
				series[name] = append(series[name], float64(pair.Value))
			}
		}
	}
	return series, nil
}
