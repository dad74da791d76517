package mlflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"
)

func (c *Client) LogMetric(ctx context.Context, runID string, key string, value float64, timestamp time.Time) error {
	err := c.experiments.LogMetric(ctx, ml.LogMetric{
		RunId:     runID,
		Key:       key,
		Value:     value,
		Timestamp: timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to log metric %s: %w", key, err)
	}
	return nil
}

// LogMetrics logs every metric at the same timestamp, in key order.
func (c *Client) LogMetrics(ctx context.Context, runID string, metrics map[string]float64, timestamp time.Time) error {
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := c.LogMetric(ctx, runID, key, metrics[key], timestamp); err != nil {
			return err
		}
	}
	return nil
}
