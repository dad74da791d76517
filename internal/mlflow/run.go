package mlflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
	RunStatusKilled   RunStatus = "KILLED"
)

const runNameTag = "mlflow.runName"

// RunInfo is the subset of an MLflow run the mirror needs.
type RunInfo struct {
	RunID        string
	ExperimentID string
	RunName      string
}

func (c *Client) CreateRun(ctx context.Context, experimentID, runName string, tags map[string]string) (*RunInfo, error) {
	if experimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}
	if runName == "" {
		runName = "run-" + time.Now().Format("2006-01-02-15-04-05")
	}

	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	runTags := make([]ml.RunTag, 0, len(tags)+1)
	for _, key := range keys {
		runTags = append(runTags, ml.RunTag{Key: key, Value: tags[key]})
	}
	runTags = append(runTags, ml.RunTag{Key: runNameTag, Value: runName})

	startTime := time.Now()
	resp, err := c.experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         runTags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	info := &RunInfo{
		ExperimentID: experimentID,
		RunName:      runName,
	}
	if resp.Run != nil && resp.Run.Info != nil {
		info.RunID = resp.Run.Info.RunId
	}
	if info.RunID == "" {
		return nil, fmt.Errorf("create run returned no run ID")
	}
	return info, nil
}

func (c *Client) UpdateRun(ctx context.Context, runID string, status RunStatus) error {
	var mlStatus ml.UpdateRunStatus
	switch status {
	case RunStatusRunning:
		mlStatus = ml.UpdateRunStatusRunning
	case RunStatusFailed:
		mlStatus = ml.UpdateRunStatusFailed
	case RunStatusKilled:
		mlStatus = ml.UpdateRunStatusKilled
	default:
		mlStatus = ml.UpdateRunStatusFinished
	}

	updateRun := ml.UpdateRun{
		RunId:  runID,
		Status: mlStatus,
	}
	if status != RunStatusRunning {
		updateRun.EndTime = time.Now().UnixMilli()
	}

	if _, err := c.experiments.UpdateRun(ctx, updateRun); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}
