package sequencer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/nnperf/internal/models"
	"github.com/imishinist/nnperf/internal/remote"
	"github.com/imishinist/nnperf/internal/results"
)

type events []string

func (e *events) add(format string, args ...any) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

type fakeService struct{ ev *events }

func (f *fakeService) Stop(context.Context) error  { f.ev.add("stop"); return nil }
func (f *fakeService) Start(context.Context) error { f.ev.add("start"); return nil }
func (f *fakeService) AwaitCompletion(_ context.Context, name string, interval time.Duration) error {
	f.ev.add("await %s %s", name, interval)
	return nil
}

type fakeConfigurer struct {
	ev     *events
	failOn *models.ConfigKey
}

func (f *fakeConfigurer) ApplyConfig(_ context.Context, key models.ConfigKey) error {
	f.ev.add("apply %s", key)
	if f.failOn != nil && *f.failOn == key {
		return errors.New("batch rejected")
	}
	return nil
}

type fakeLoadGen struct {
	ev     *events
	master string
}

func (f *fakeLoadGen) Run(context.Context) error {
	f.ev.add("loadgen")
	return os.WriteFile(f.master, []byte("run output\n"), 0644)
}

func (f *fakeLoadGen) Artifacts() []string { return []string{f.master} }

type fakeDetector struct {
	window *models.RunWindow
	err    error
}

func (f *fakeDetector) Detect(io.Reader) (*models.RunWindow, error) {
	if f.err != nil {
		return nil, f.err
	}
	w := *f.window
	return &w, nil
}

type fakeSource struct {
	ev *events
}

func (f *fakeSource) Fetch(_ context.Context, start, end time.Time) (models.MetricSeries, error) {
	f.ev.add("fetch %s %s", start.Format("15:04:05"), end.Format("15:04:05"))
	return models.MetricSeries{"rpc_queue_time_avg_time": {1, 2, 3}}, nil
}

type fakeRecorder struct {
	ev   *events
	rows []*models.RunRecord
}

func (f *fakeRecorder) Append(record *models.RunRecord) error {
	f.ev.add("append")
	f.rows = append(f.rows, record)
	return nil
}

type fakePublisher struct {
	ev  *events
	err error
}

func (f *fakePublisher) Publish(_ context.Context, _ *models.RunRecord, cfg models.RunConfiguration) error {
	f.ev.add("publish %s", cfg.Key)
	return f.err
}

type fakeRecovery struct {
	ev  *events
	log string
}

func (f *fakeRecovery) Recover(context.Context) bool {
	f.ev.add("recover")
	return os.WriteFile(f.log, []byte("recovered\n"), 0644) == nil
}

type fakeExecutor struct {
	ev  *events
	err error
}

func (f *fakeExecutor) Run(_ context.Context, host, command, sink string) error {
	f.ev.add("exec %s %s", host, command)
	if sink != "" {
		if err := os.WriteFile(sink, []byte("cleaned\n"), 0644); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeExecutor) RunAsync(ctx context.Context, tasks *remote.TaskSet, host, command, sink string) *remote.Handle {
	return tasks.Go(host, command, sink, func() error { return f.Run(ctx, host, command, sink) })
}

type fixture struct {
	ev        events
	dir       string
	recorder  *fakeRecorder
	publisher *fakePublisher
	detector  *fakeDetector
	config    *fakeConfigurer
	exec      *fakeExecutor
	deletes   int
	seq       *Sequencer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir()}
	f.recorder = &fakeRecorder{ev: &f.ev}
	f.publisher = &fakePublisher{ev: &f.ev}
	f.config = &fakeConfigurer{ev: &f.ev}
	f.exec = &fakeExecutor{ev: &f.ev}
	f.detector = &fakeDetector{window: &models.RunWindow{
		Start:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC),
		Operations: 1200,
	}}
	master := filepath.Join(f.dir, "master.out")

	deps := Deps{
		Service:    &fakeService{ev: &f.ev},
		Configurer: f.config,
		LoadGen:    &fakeLoadGen{ev: &f.ev, master: master},
		Detector:   f.detector,
		Source:     &fakeSource{ev: &f.ev},
		Recorder:   f.recorder,
		Publisher:  f.publisher,
		Recovery:   &fakeRecovery{ev: &f.ev, log: filepath.Join(f.dir, "recovered.log")},
		Executor:   f.exec,
		Configure: func(key models.ConfigKey) (models.RunConfiguration, error) {
			return models.RunConfiguration{
				Key: key, ReadOps: 300, TotalOps: 1000,
				ReadCount: 300, WriteCount: 700, DeleteCount: f.deletes,
			}, nil
		},
	}
	opts := Options{
		Variants:     models.DefaultMatrix().Variants,
		Metrics:      []string{"rpc_queue_time_avg_time"},
		NameNode:     "nn-1",
		CleanupLog:   filepath.Join(f.dir, "cleanup.log"),
		MasterOutput: master,
		RecoveryLog:  filepath.Join(f.dir, "recovered.log"),
		ArchiveDir:   filepath.Join(f.dir, "archive"),
		StopPoll:     2 * time.Second,
		StartPoll:    20 * time.Second,
		HealthSettle: time.Minute,
		RecoveryWait: 90 * time.Second,
		Cooldown:     4 * time.Minute,
	}

	f.seq = New(deps, opts)
	f.seq.sleep = func(_ context.Context, d time.Duration) error {
		f.ev.add("sleep %s", d)
		return nil
	}
	f.seq.now = func() time.Time { return time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC) }
	return f
}

func runEvents(key models.ConfigKey) []string {
	return []string{
		"stop",
		"await Stop 2s",
		"exec nn-1 " + CleanupCommand,
		"apply " + key.String(),
		"start",
		"await Start 20s",
		"sleep 1m0s",
		"loadgen",
		"fetch 10:00:30 10:04:30",
		"append",
		"publish " + key.String(),
	}
}

func TestRunVisitsEveryVariantInOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.seq.Run(context.Background()))

	variants := models.DefaultMatrix().Variants
	assert.Equal(t, variants, f.seq.Combinations())
	assert.Len(t, f.recorder.rows, 4)

	var want []string
	for _, key := range variants {
		want = append(want, runEvents(key)...)
		want = append(want, "sleep 4m0s")
	}
	assert.Equal(t, want, []string(f.ev))

	assert.Equal(t, "yes", f.recorder.rows[0].Values[results.ColumnRMSEnabled])
	assert.Equal(t, "no", f.recorder.rows[1].Values[results.ColumnRMSEnabled])
	assert.Equal(t, "2.000", f.recorder.rows[0].Values["rpc_queue_time_avg_time"])
}

func TestRunArchivesArtifacts(t *testing.T) {
	f := newFixture(t)
	f.seq.opts.Variants = f.seq.opts.Variants[:1]
	require.NoError(t, f.seq.Run(context.Background()))

	dir := filepath.Join(f.dir, "archive", "rms_yes_opt_yes_read_300_write_700")
	assert.FileExists(t, filepath.Join(dir, "2024-01-01_11-00-00_master.out"))
	assert.FileExists(t, filepath.Join(dir, "2024-01-01_11-00-00_cleanup.log"))
	assert.NoFileExists(t, filepath.Join(f.dir, "master.out"))
	assert.NoDirExists(t, filepath.Join(f.dir, "archive", "rms_no_opt_no_read_300_write_700"))
}

func TestRunRecoversAfterDestructiveRun(t *testing.T) {
	f := newFixture(t)
	f.deletes = 10
	f.seq.opts.Variants = f.seq.opts.Variants[:1]
	require.NoError(t, f.seq.Run(context.Background()))

	key := f.seq.opts.Variants[0]
	want := append(runEvents(key), "sleep 1m30s", "recover", "sleep 4m0s")
	assert.Equal(t, want, []string(f.ev))

	dir := filepath.Join(f.dir, "archive", "rms_yes_opt_yes_read_300_write_700")
	assert.FileExists(t, filepath.Join(dir, "2024-01-01_11-00-00_recovered.log"))
}

func TestRunContinuesWhenArchiveDirCannotBeCreated(t *testing.T) {
	f := newFixture(t)
	f.deletes = 10
	blocker := filepath.Join(f.dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	f.seq.opts.ArchiveDir = filepath.Join(blocker, "archive")

	require.NoError(t, f.seq.Run(context.Background()))

	assert.Equal(t, models.DefaultMatrix().Variants, f.seq.Combinations())
	assert.Len(t, f.recorder.rows, 4)
	assert.Equal(t, "sleep 4m0s", f.ev[len(f.ev)-1])
	assert.FileExists(t, filepath.Join(f.dir, "master.out"))
	assert.FileExists(t, filepath.Join(f.dir, "recovered.log"))
}

func TestRunSkipsRecoveryWithoutDeletes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.seq.Run(context.Background()))
	assert.NotContains(t, []string(f.ev), "recover")
}

func TestRunAbortsOnFirstError(t *testing.T) {
	f := newFixture(t)
	second := f.seq.opts.Variants[1]
	f.config.failOn = &second

	err := f.seq.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch rejected")

	assert.Len(t, f.recorder.rows, 1)
	assert.Equal(t, f.seq.opts.Variants[:2], f.seq.Combinations())
	assert.Equal(t, "apply "+second.String(), f.ev[len(f.ev)-1])
}

func TestRunAbortsOnShortRun(t *testing.T) {
	f := newFixture(t)
	f.detector.err = errors.New("insufficient run duration")

	require.Error(t, f.seq.Run(context.Background()))
	assert.Empty(t, f.recorder.rows)
	assert.NotContains(t, []string(f.ev), "sleep 4m0s")
}

func TestRunToleratesCleanupAndMirrorFailures(t *testing.T) {
	f := newFixture(t)
	f.exec.err = errors.New("permission denied")
	f.publisher.err = errors.New("tracking server down")

	require.NoError(t, f.seq.Run(context.Background()))
	assert.Len(t, f.recorder.rows, 4)
}

func TestRunWithoutOptionalDeps(t *testing.T) {
	f := newFixture(t)
	f.seq.deps.Publisher = nil
	f.seq.deps.Executor = nil
	f.seq.opts.Variants = f.seq.opts.Variants[:1]
	require.NoError(t, f.seq.Run(context.Background()))

	for _, e := range f.ev {
		assert.NotContains(t, e, "exec")
		assert.NotContains(t, e, "publish")
	}
}

func TestRunStopsWhenSleepIsCancelled(t *testing.T) {
	f := newFixture(t)
	f.seq.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	err := f.seq.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.recorder.rows)
}

func TestSessionIsStable(t *testing.T) {
	f := newFixture(t)
	assert.NotEmpty(t, f.seq.Session())
	assert.Equal(t, f.seq.Session(), f.seq.Session())
}

func TestSessionFromOptions(t *testing.T) {
	seq := New(Deps{}, Options{Session: "fixed"})
	assert.Equal(t, "fixed", seq.Session())
}
