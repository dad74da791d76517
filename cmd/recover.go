package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/nnperf/internal/config"
	"github.com/imishinist/nnperf/internal/recovery"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Restore files deleted by a destructive run",
	Long:  "Run the recovery script over the index range persisted by the last destructive run",
	RunE:  recoverFiles,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func recoverFiles(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	manager := recovery.NewManager(cfg.IndexFile, cfg.RecoveryScript, cfg.RecoveryLog)

	if !manager.Recover(context.Background()) {
		fmt.Printf("Nothing to recover\n")
		return nil
	}

	fmt.Printf("Recovery finished\n")
	fmt.Printf("Log: %s\n", cfg.RecoveryLog)
	return nil
}
