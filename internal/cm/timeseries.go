package cm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imishinist/nnperf/internal/models"
	timeutils "github.com/imishinist/nnperf/internal/time"
)

type timeSeriesResponse struct {
	Items []struct {
		TimeSeries []struct {
			Metadata struct {
				MetricName string `json:"metricName"`
			} `json:"metadata"`
			Data []struct {
				Value float64 `json:"value"`
			} `json:"data"`
		} `json:"timeSeries"`
	} `json:"items"`
}

// TimeSeries queries the named metrics of entity between from and to.
func (c *Client) TimeSeries(ctx context.Context, metrics []string, entity string, from, to time.Time) (models.MetricSeries, error) {
	query := url.Values{
		"query": []string{fmt.Sprintf("select %s where entityName=%s", strings.Join(metrics, ","), entity)},
		"from":  []string{timeutils.FormatISO(from)},
		"to":    []string{timeutils.FormatISO(to)},
	}

	var resp timeSeriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v6/timeseries", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}

	series := make(models.MetricSeries)
	if len(resp.Items) == 0 {
		return series, nil
	}
	for _, ts := range resp.Items[0].TimeSeries {
		name := ts.Metadata.MetricName
		for _, point := range ts.Data {
			series[name] = append(series[name], point.Value)
		}
	}
	return series, nil
}
