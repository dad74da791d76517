package mlflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/models"
	"github.com/imishinist/nnperf/internal/results"
)

const (
	SessionTag = "nnperf.session"
	ConfigTag  = "nnperf.config"
)

// Tracker is the part of the MLflow API the sink writes through.
type Tracker interface {
	CreateRun(ctx context.Context, experimentID, runName string, tags map[string]string) (*RunInfo, error)
	LogParamsFromMap(ctx context.Context, runID string, params map[string]string) error
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64, timestamp time.Time) error
	UpdateRun(ctx context.Context, runID string, status RunStatus) error
}

// Sink mirrors results rows into an MLflow experiment, one MLflow run per
// row.
type Sink struct {
	tracker      Tracker
	experimentID string
	session      string
	metricNames  []string
	now          func() time.Time
}

func NewSink(tracker Tracker, experimentID, session string, metricNames []string) *Sink {
	return &Sink{
		tracker:      tracker,
		experimentID: experimentID,
		session:      session,
		metricNames:  metricNames,
		now:          time.Now,
	}
}

// Publish creates a run for the record, logs it and ends the run. A run whose
// logging fails is ended as FAILED.
func (s *Sink) Publish(ctx context.Context, record *models.RunRecord, cfg models.RunConfiguration) error {
	params, metrics, err := Split(record, s.metricNames)
	if err != nil {
		return err
	}

	tags := map[string]string{ConfigTag: cfg.Key.String()}
	if s.session != "" {
		tags[SessionTag] = s.session
	}
	run, err := s.tracker.CreateRun(ctx, s.experimentID, RunName(cfg), tags)
	if err != nil {
		return err
	}
	logger := log.WithFields(log.Fields{"run_id": run.RunID, "run_name": run.RunName})

	if err := s.log(ctx, run.RunID, params, metrics); err != nil {
		if uerr := s.tracker.UpdateRun(ctx, run.RunID, RunStatusFailed); uerr != nil {
			logger.WithError(uerr).Warn("failed to mark MLflow run as failed")
		}
		return err
	}
	if err := s.tracker.UpdateRun(ctx, run.RunID, RunStatusFinished); err != nil {
		return err
	}

	logger.Info("mirrored run record to MLflow")
	return nil
}

func (s *Sink) log(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error {
	if err := s.tracker.LogParamsFromMap(ctx, runID, params); err != nil {
		return err
	}
	return s.tracker.LogMetrics(ctx, runID, metrics, s.now())
}

// RunName names the MLflow run after the combination and its load mix.
func RunName(cfg models.RunConfiguration) string {
	return fmt.Sprintf("rms_%s_opt_%s_%s",
		models.Label(cfg.Key.RMS), models.Label(cfg.Key.Optimization), cfg.ReadWriteMix())
}

// Split divides a results row into MLflow params and metrics. Throughput
// and the metric averages become metrics, every other column a param.
func Split(record *models.RunRecord, metricNames []string) (map[string]string, map[string]float64, error) {
	numeric := map[string]bool{results.ColumnTPS: true}
	for _, name := range metricNames {
		numeric[name] = true
	}

	params := make(map[string]string)
	metrics := make(map[string]float64)
	for _, key := range record.Keys {
		value := record.Values[key]
		if !numeric[key] {
			params[key] = value
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s is not numeric: %q", key, value)
		}
		metrics[key] = f
	}
	return params, metrics, nil
}
