package cmd

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/nnperf/internal/config"
	"github.com/imishinist/nnperf/internal/logging"
)

var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:   "nnperf",
	Short: "HDFS NameNode performance benchmark driver",
	Long: `A command line tool that benchmarks an HDFS NameNode under every
combination of Ranger plugin settings. Each combination reconfigures and
restarts the service, drives a distributed JMeter load, and records the
measured throughput and RPC latencies.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "setup.properties", "Properties file with hosts and operation counts")
	rootCmd.PersistentFlags().String("hostname", "", "Management API host")
	rootCmd.PersistentFlags().String("matrix", "", "Variant matrix file (JSON/YAML, default: all four combinations)")
	rootCmd.PersistentFlags().String("log-file", "jmeter-perf.log", "File that receives a copy of the log")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides NNPERF_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "MLflow experiment ID to mirror results into")
	rootCmd.PersistentFlags().String("telemetry", "", "Telemetry backend (cm/prometheus)")
	rootCmd.PersistentFlags().String("prometheus-url", "", "Prometheus address for the prometheus backend")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("hostname", rootCmd.PersistentFlags().Lookup("hostname"))
	viper.BindPFlag("matrix", rootCmd.PersistentFlags().Lookup("matrix"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", rootCmd.PersistentFlags().Lookup("experiment-id"))
	viper.BindPFlag("telemetry", rootCmd.PersistentFlags().Lookup("telemetry"))
	viper.BindPFlag("prometheus_url", rootCmd.PersistentFlags().Lookup("prometheus-url"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("NNPERF")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")
	viper.BindEnv("tracking_uri", "NNPERF_TRACKING_URI", "MLFLOW_TRACKING_URI")
	viper.BindEnv("experiment_id", "NNPERF_EXPERIMENT_ID", "MLFLOW_EXPERIMENT_ID")

	config.SetDefaults()
}

func setup(cmd *cobra.Command, args []string) error {
	closer, err := logging.Configure(viper.GetString("log_file"), viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	closeLog = closer

	// The default properties file is optional; commands that need its keys
	// fail validation instead.
	path := viper.GetString("config")
	err = config.LoadProperties(path)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		log.WithField("file", path).Debug("properties file not found")
		return nil
	}
	if err != nil {
		return err
	}
	log.WithField("file", path).Debug("loaded properties")
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	return closeLog()
}
