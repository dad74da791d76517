package mlflow

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/nnperf/internal/config"
)

type Client struct {
	experiments ml.ExperimentsInterface
	config      *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.Tracking() {
		return nil, fmt.Errorf("tracking URI and experiment ID are required for MLflow mirroring")
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}

		// Handle different Databricks URI formats
		if cfg.TrackingURI == "databricks" {
			if cfg.DatabricksHost != "" {
				databricksConfig.Host = cfg.DatabricksHost
			}
		} else if profile := cfg.GetDatabricksProfile(); profile != "" {
			databricksConfig.Profile = profile
		} else {
			databricksConfig.Host = cfg.TrackingURI
		}

		// Token overrides profile
		if cfg.DatabricksToken != "" {
			databricksConfig.Token = cfg.DatabricksToken
		}

		if databricksConfig.Host == "" && databricksConfig.Profile == "" {
			return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
		}
	} else {
		// Regular MLflow server; the token only satisfies the SDK's auth chain.
		databricksConfig = &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return newClientWith(client.Experiments, cfg), nil
}

func newClientWith(experiments ml.ExperimentsInterface, cfg *config.Config) *Client {
	return &Client{experiments: experiments, config: cfg}
}
