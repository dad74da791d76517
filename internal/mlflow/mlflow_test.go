package mlflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/nnperf/internal/config"
	"github.com/imishinist/nnperf/internal/models"
)

type fakeExperiments struct {
	ml.ExperimentsInterface

	created []ml.CreateRun
	metrics []ml.LogMetric
	params  []ml.LogParam
	updates []ml.UpdateRun
	failLog error
}

func (f *fakeExperiments) CreateRun(_ context.Context, req ml.CreateRun) (*ml.CreateRunResponse, error) {
	f.created = append(f.created, req)
	return &ml.CreateRunResponse{Run: &ml.Run{Info: &ml.RunInfo{
		RunId: "run-1",
	}}}, nil
}

func (f *fakeExperiments) LogMetric(_ context.Context, req ml.LogMetric) error {
	f.metrics = append(f.metrics, req)
	return f.failLog
}

func (f *fakeExperiments) LogParam(_ context.Context, req ml.LogParam) error {
	f.params = append(f.params, req)
	return f.failLog
}

func (f *fakeExperiments) UpdateRun(_ context.Context, req ml.UpdateRun) (*ml.UpdateRunResponse, error) {
	f.updates = append(f.updates, req)
	return &ml.UpdateRunResponse{}, nil
}

func testRecord() *models.RunRecord {
	record := models.NewRunRecord()
	record.Set("rpc_processing_time_avg_time", "1.500")
	record.Set("start_time", "2024-01-01T00:00:00.000Z")
	record.Set("end_time", "2024-01-01T00:05:00.000Z")
	record.Set("tps", "4.000")
	record.Set("rms_enabled", "yes")
	record.Set("optimization_enabled", "no")
	record.Set("read_write_mix", "300_read_700_write")
	return record
}

func testConfiguration() models.RunConfiguration {
	return models.RunConfiguration{
		Key:      models.ConfigKey{RMS: true},
		ReadOps:  300,
		TotalOps: 1000,
	}
}

func TestNewClientRequiresTracking(t *testing.T) {
	_, err := NewClient(&config.Config{TrackingURI: "http://localhost:5000"})
	assert.Error(t, err)
}

func TestCreateRunTags(t *testing.T) {
	fake := &fakeExperiments{}
	client := newClientWith(fake, &config.Config{})

	info, err := client.CreateRun(context.Background(), "42", "my-run", map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", info.RunID)
	assert.Equal(t, "my-run", info.RunName)

	require.Len(t, fake.created, 1)
	assert.Equal(t, "42", fake.created[0].ExperimentId)
	assert.Equal(t, []ml.RunTag{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
		{Key: runNameTag, Value: "my-run"},
	}, fake.created[0].Tags)
}

func TestCreateRunRequiresExperiment(t *testing.T) {
	client := newClientWith(&fakeExperiments{}, &config.Config{})
	_, err := client.CreateRun(context.Background(), "", "", nil)
	assert.Error(t, err)
}

func TestUpdateRunSetsEndTime(t *testing.T) {
	fake := &fakeExperiments{}
	client := newClientWith(fake, &config.Config{})

	require.NoError(t, client.UpdateRun(context.Background(), "run-1", RunStatusRunning))
	require.NoError(t, client.UpdateRun(context.Background(), "run-1", RunStatusFailed))

	require.Len(t, fake.updates, 2)
	assert.Equal(t, ml.UpdateRunStatusRunning, fake.updates[0].Status)
	assert.Zero(t, fake.updates[0].EndTime)
	assert.Equal(t, ml.UpdateRunStatusFailed, fake.updates[1].Status)
	assert.NotZero(t, fake.updates[1].EndTime)
}

func TestSplit(t *testing.T) {
	params, metrics, err := Split(testRecord(), []string{"rpc_processing_time_avg_time"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"rpc_processing_time_avg_time": 1.5,
		"tps":                          4,
	}, metrics)
	assert.Equal(t, map[string]string{
		"start_time":           "2024-01-01T00:00:00.000Z",
		"end_time":             "2024-01-01T00:05:00.000Z",
		"rms_enabled":          "yes",
		"optimization_enabled": "no",
		"read_write_mix":       "300_read_700_write",
	}, params)
}

func TestSplitRejectsNonNumericMetric(t *testing.T) {
	record := testRecord()
	record.Set("tps", "n/a")
	_, _, err := Split(record, nil)
	assert.Error(t, err)
}

func TestRunName(t *testing.T) {
	assert.Equal(t, "rms_yes_opt_no_300_read_700_write", RunName(testConfiguration()))
}

func TestSinkPublish(t *testing.T) {
	fake := &fakeExperiments{}
	sink := NewSink(newClientWith(fake, &config.Config{}), "42", "session-1", []string{"rpc_processing_time_avg_time"})
	stamp := time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC)
	sink.now = func() time.Time { return stamp }

	require.NoError(t, sink.Publish(context.Background(), testRecord(), testConfiguration()))

	require.Len(t, fake.created, 1)
	assert.Equal(t, "rms_yes_opt_no_300_read_700_write", fake.created[0].RunName)
	assert.Contains(t, fake.created[0].Tags, ml.RunTag{Key: SessionTag, Value: "session-1"})
	assert.Contains(t, fake.created[0].Tags, ml.RunTag{Key: ConfigTag, Value: "rms=yes optimization=no"})

	assert.Len(t, fake.params, 5)
	require.Len(t, fake.metrics, 2)
	assert.Equal(t, "rpc_processing_time_avg_time", fake.metrics[0].Key)
	assert.Equal(t, "tps", fake.metrics[1].Key)
	assert.Equal(t, stamp.UnixMilli(), fake.metrics[1].Timestamp)

	require.Len(t, fake.updates, 1)
	assert.Equal(t, ml.UpdateRunStatusFinished, fake.updates[0].Status)
}

func TestSinkPublishMarksFailedRun(t *testing.T) {
	fake := &fakeExperiments{failLog: errors.New("unavailable")}
	sink := NewSink(newClientWith(fake, &config.Config{}), "42", "", nil)

	err := sink.Publish(context.Background(), testRecord(), testConfiguration())
	require.Error(t, err)

	require.Len(t, fake.updates, 1)
	assert.Equal(t, ml.UpdateRunStatusFailed, fake.updates[0].Status)
	assert.NotContains(t, fake.created[0].Tags, ml.RunTag{Key: SessionTag, Value: ""})
}
