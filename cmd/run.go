package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/nnperf/internal/cm"
	"github.com/imishinist/nnperf/internal/config"
	"github.com/imishinist/nnperf/internal/loadgen"
	"github.com/imishinist/nnperf/internal/mlflow"
	"github.com/imishinist/nnperf/internal/parser"
	"github.com/imishinist/nnperf/internal/recovery"
	"github.com/imishinist/nnperf/internal/remote"
	"github.com/imishinist/nnperf/internal/results"
	"github.com/imishinist/nnperf/internal/sequencer"
	"github.com/imishinist/nnperf/internal/telemetry"
	"github.com/imishinist/nnperf/internal/window"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark over every configuration combination",
	Long: `Snapshot the current safety valve, then for each combination stop the
service, apply its payload, start the service, run the JMeter load and record
the results.`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("name-node", "", "NameNode host for log cleanup between runs")
	runCmd.Flags().String("master", "", "JMeter master host (required)")
	runCmd.Flags().String("entity", "", "Telemetry entity name of the NameNode role (required)")
	viper.BindPFlag("name_node", runCmd.Flags().Lookup("name-node"))
	viper.BindPFlag("master", runCmd.Flags().Lookup("master"))
	viper.BindPFlag("entity_name", runCmd.Flags().Lookup("entity"))
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	matrix, err := parser.LoadMatrix(cfg.MatrixFile)
	if err != nil {
		return err
	}

	client := newCMClient(cfg)
	updater := cm.NewConfigUpdater(client, cm.FilePayloadStore{Dir: cfg.PayloadDir})

	ctx := context.Background()
	if _, err := updater.SnapshotConfig(ctx, cfg.SnapshotFile); err != nil {
		return err
	}

	source, err := newSource(cfg, client, matrix.Metrics)
	if err != nil {
		return err
	}

	exec, err := remote.NewSSHExecutor(cfg.UnixUser, cfg.PemFile)
	if err != nil {
		return err
	}

	session := uuid.NewString()
	deps := sequencer.Deps{
		Service:    cm.NewServiceController(client),
		Configurer: updater,
		LoadGen: loadgen.NewOrchestrator(exec, loadgen.Options{
			Workers:      cfg.RemoteHosts,
			Master:       cfg.Master,
			InstallDir:   cfg.InstallDir,
			MasterOutput: cfg.MasterOutput,
			OutputDir:    filepath.Dir(cfg.MasterOutput),
			Settle:       cfg.WorkerSettle,
		}),
		Detector:  window.NewMarkerDetector(),
		Source:    source,
		Recorder:  results.NewRecorder(cfg.ResultsFile),
		Recovery:  recovery.NewManager(cfg.IndexFile, cfg.RecoveryScript, cfg.RecoveryLog),
		Executor:  exec,
		Configure: cfg.RunConfiguration,
	}
	if cfg.Tracking() {
		tracker, err := mlflow.NewClient(cfg)
		if err != nil {
			return err
		}
		deps.Publisher = mlflow.NewSink(tracker, cfg.ExperimentID, session, matrix.Metrics)
	}

	seq := sequencer.New(deps, sequencer.Options{
		Session:      session,
		Variants:     matrix.Variants,
		Metrics:      matrix.Metrics,
		NameNode:     cfg.NameNode,
		CleanupLog:   cfg.CleanupLog,
		MasterOutput: cfg.MasterOutput,
		RecoveryLog:  cfg.RecoveryLog,
		ArchiveDir:   cfg.ArchiveDir,
		StopPoll:     cfg.StopPoll,
		StartPoll:    cfg.StartPoll,
		HealthSettle: cfg.HealthSettle,
		RecoveryWait: cfg.RecoveryWait,
		Cooldown:     cfg.Cooldown,
	})
	if err := seq.Run(ctx); err != nil {
		log.WithField("completed", len(seq.Combinations())).Error("benchmark sequence aborted")
		return err
	}

	fmt.Printf("Benchmark finished\n")
	fmt.Printf("Session: %s\n", seq.Session())
	fmt.Printf("Results: %s\n", cfg.ResultsFile)
	return nil
}

func newCMClient(cfg *config.Config) *cm.Client {
	return cm.NewClient(cm.BaseURL(cfg.CMHost, cfg.CMPort), cfg.Cluster, cfg.Service, cfg.CMUser, cfg.CMPassword)
}

func newSource(cfg *config.Config, client *cm.Client, metrics []string) (telemetry.Source, error) {
	switch cfg.TelemetryBackend {
	case "prometheus":
		return telemetry.NewPrometheusSource(cfg.PrometheusURL, metrics)
	default:
		return telemetry.NewCMSource(client, cfg.Entity, metrics), nil
	}
}
