package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/nnperf/internal/cm"
	"github.com/imishinist/nnperf/internal/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save the current safety valve configuration",
	Long:  "Fetch the service configuration and save the Ranger safety valve value to a file",
	RunE:  snapshotConfig,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().String("output", "", "Output file (default: snapshot_file setting)")
}

func snapshotConfig(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	if cfg.CMHost == "" {
		return fmt.Errorf("management API hostname is required")
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.SnapshotFile
	}

	updater := cm.NewConfigUpdater(newCMClient(cfg), cm.FilePayloadStore{Dir: cfg.PayloadDir})
	saved, err := updater.SnapshotConfig(context.Background(), output)
	if err != nil {
		return err
	}

	if !saved {
		fmt.Printf("No safety valve configuration present\n")
		return nil
	}
	fmt.Printf("Saved safety valve configuration to %s\n", output)
	return nil
}
