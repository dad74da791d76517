package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/imishinist/nnperf/internal/config"
	"github.com/imishinist/nnperf/internal/mlflow"
	"github.com/imishinist/nnperf/internal/parser"
	"github.com/imishinist/nnperf/internal/results"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Mirror a results table into MLflow",
	Long:  "Create one MLflow run per row of an existing results table",
	RunE:  publishResults,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().String("file", "", "Results table (default: results_file setting)")
}

func publishResults(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	matrix, err := parser.LoadMatrix(cfg.MatrixFile)
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		file = cfg.ResultsFile
	}
	records, err := results.ReadRecords(file)
	if err != nil {
		return err
	}

	session := uuid.NewString()
	sink := mlflow.NewSink(client, cfg.ExperimentID, session, matrix.Metrics)

	ctx := context.Background()
	for i, record := range records {
		runCfg, err := results.Configuration(record)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := sink.Publish(ctx, record, runCfg); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	fmt.Printf("Successfully published %d runs from %s\n", len(records), file)
	fmt.Printf("Session: %s\n", session)
	return nil
}
