package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imishinist/nnperf/internal/models"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

var validTelemetryBackends = map[string]bool{
	"cm": true, "prometheus": true,
}

// Default property names of the per-operation counts in setup.properties.
var (
	DefaultReadOpNames = []string{"hdfs.op.count.read", "hdfs.op.count.file_status"}
	DefaultOpNames     = []string{
		"hdfs.op.count.read", "hdfs.op.count.write", "hdfs.op.count.append", "hdfs.op.count.delete",
		"hdfs.op.count.rename", "hdfs.op.count.file_status", "hdfs.op.count.list_files", "hdfs.op.count.mkdir",
	}
)

const (
	readCountKey   = "hdfs.op.count.read"
	writeCountKey  = "hdfs.op.count.write"
	deleteCountKey = "hdfs.op.count.delete"
)

type Config struct {
	// Management API
	CMHost     string
	CMPort     int
	CMUser     string
	CMPassword string
	Cluster    string
	Service    string
	Entity     string

	// Hosts
	NameNode    string
	Master      string
	RemoteHosts []string
	UnixUser    string
	PemFile     string
	InstallDir  string

	// Local files
	MatrixFile     string
	PayloadDir     string
	ResultsFile    string
	ArchiveDir     string
	IndexFile      string
	RecoveryScript string
	RecoveryLog    string
	SnapshotFile   string
	MasterOutput   string
	CleanupLog     string

	// Delays
	WorkerSettle time.Duration
	HealthSettle time.Duration
	RecoveryWait time.Duration
	Cooldown     time.Duration
	StopPoll     time.Duration
	StartPoll    time.Duration

	// Telemetry
	TelemetryBackend string
	PrometheusURL    string

	// Operation mix
	OpNames     []string
	ReadOpNames []string

	// Result mirroring
	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string
}

func New() *Config {
	return &Config{
		CMHost:     viper.GetString("hostname"),
		CMPort:     viper.GetInt("cm_port"),
		CMUser:     viper.GetString("cm_user"),
		CMPassword: viper.GetString("cm_password"),
		Cluster:    viper.GetString("cluster"),
		Service:    viper.GetString("service"),
		Entity:     viper.GetString("entity_name"),

		NameNode:    viper.GetString("name_node"),
		Master:      viper.GetString("master"),
		RemoteHosts: splitHosts(viper.GetString("jmeter.remote.hosts")),
		UnixUser:    viper.GetString("unix.user"),
		PemFile:     viper.GetString("pem.file"),
		InstallDir:  viper.GetString("jmeter.install.dir"),

		MatrixFile:     viper.GetString("matrix"),
		PayloadDir:     viper.GetString("payload_dir"),
		ResultsFile:    viper.GetString("results_file"),
		ArchiveDir:     viper.GetString("archive_dir"),
		IndexFile:      viper.GetString("index_file"),
		RecoveryScript: viper.GetString("recovery_script"),
		RecoveryLog:    viper.GetString("recovery_log"),
		SnapshotFile:   viper.GetString("snapshot_file"),
		MasterOutput:   viper.GetString("master_output"),
		CleanupLog:     viper.GetString("cleanup_log"),

		WorkerSettle: viper.GetDuration("worker_settle"),
		HealthSettle: viper.GetDuration("health_settle"),
		RecoveryWait: viper.GetDuration("recovery_wait"),
		Cooldown:     viper.GetDuration("cooldown"),
		StopPoll:     viper.GetDuration("stop_poll"),
		StartPoll:    viper.GetDuration("start_poll"),

		TelemetryBackend: viper.GetString("telemetry"),
		PrometheusURL:    viper.GetString("prometheus_url"),

		OpNames:     viper.GetStringSlice("op_names"),
		ReadOpNames: viper.GetStringSlice("read_op_names"),

		TrackingURI:     viper.GetString("tracking_uri"),
		ExperimentID:    viper.GetString("experiment_id"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
	}
}

// SetDefaults registers the defaults of every key New reads.
func SetDefaults() {
	viper.SetDefault("cm_port", 7180)
	viper.SetDefault("cm_user", "admin")
	viper.SetDefault("cm_password", "admin")
	viper.SetDefault("cluster", "Cluster 1")
	viper.SetDefault("service", "HDFS-1")

	viper.SetDefault("payload_dir", "safety-valve-configs")
	viper.SetDefault("results_file", "jmeter_run_summary.csv")
	viper.SetDefault("index_file", "index.txt")
	viper.SetDefault("recovery_script", "./install-jmeter.sh")
	viper.SetDefault("recovery_log", "recovered.log")
	viper.SetDefault("snapshot_file", "pre_run_configs")
	viper.SetDefault("master_output", "master.out")
	viper.SetDefault("cleanup_log", "cleanup.log")
	viper.SetDefault("archive_dir", ".")

	viper.SetDefault("worker_settle", 2*time.Second)
	viper.SetDefault("health_settle", 60*time.Second)
	viper.SetDefault("recovery_wait", 90*time.Second)
	viper.SetDefault("cooldown", 4*time.Minute)
	viper.SetDefault("stop_poll", 2*time.Second)
	viper.SetDefault("start_poll", 20*time.Second)

	viper.SetDefault("telemetry", "cm")
	viper.SetDefault("op_names", DefaultOpNames)
	viper.SetDefault("read_op_names", DefaultReadOpNames)
}

func (c *Config) Validate() error {
	if c.CMHost == "" {
		return fmt.Errorf("management API hostname is required")
	}
	if c.Master == "" {
		return fmt.Errorf("master host is required")
	}
	if c.Entity == "" {
		return fmt.Errorf("telemetry entity name is required")
	}
	if c.UnixUser == "" || c.PemFile == "" {
		return fmt.Errorf("unix.user and pem.file must be set in the properties file")
	}
	if len(c.RemoteHosts) == 0 {
		return fmt.Errorf("jmeter.remote.hosts must list at least one host")
	}
	if c.InstallDir == "" {
		return fmt.Errorf("jmeter.install.dir must be set in the properties file")
	}

	if !validTelemetryBackends[c.TelemetryBackend] {
		return fmt.Errorf("invalid telemetry backend: %s (valid: cm, prometheus)", c.TelemetryBackend)
	}
	if c.TelemetryBackend == "prometheus" && c.PrometheusURL == "" {
		return fmt.Errorf("prometheus URL is required when telemetry backend is prometheus")
	}

	for name, d := range map[string]time.Duration{
		"stop_poll": c.StopPoll, "start_poll": c.StartPoll,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// RunConfiguration derives the per-combination run description from the op
// counts in the properties file.
func (c *Config) RunConfiguration(key models.ConfigKey) (models.RunConfiguration, error) {
	total, err := sumCounts(c.OpNames)
	if err != nil {
		return models.RunConfiguration{}, err
	}
	read, err := sumCounts(c.ReadOpNames)
	if err != nil {
		return models.RunConfiguration{}, err
	}
	return models.RunConfiguration{
		Key:         key,
		ReadOps:     read,
		TotalOps:    total,
		ReadCount:   viper.GetInt(readCountKey),
		WriteCount:  viper.GetInt(writeCountKey),
		DeleteCount: viper.GetInt(deleteCountKey),
	}, nil
}

func sumCounts(names []string) (int, error) {
	sum := 0
	for _, name := range names {
		if !viper.IsSet(name) {
			return 0, fmt.Errorf("operation count %s is not set", name)
		}
		sum += viper.GetInt(name)
	}
	return sum, nil
}

// Tracking reports whether run records should be mirrored to MLflow.
func (c *Config) Tracking() bool {
	return c.TrackingURI != "" && c.ExperimentID != ""
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	// Check for databricks:// protocol
	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := c.extractHostFromURL(c.TrackingURI)
		return c.isDatabricksHost(host)
	}

	return false
}

func (c *Config) extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
