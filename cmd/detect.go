package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/nnperf/internal/config"
	timeutils "github.com/imishinist/nnperf/internal/time"
	"github.com/imishinist/nnperf/internal/window"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the run window in JMeter master output",
	Long:  "Parse JMeter master output and print the run window, operation count and throughput",
	RunE:  detectWindow,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("file", "", "JMeter master output (default: master_output setting)")
	detectCmd.Flags().Duration("min-duration", 0, "Shortest acceptable run (default: 2m)")
}

func detectWindow(cmd *cobra.Command, args []string) error {
	cfg := config.New()

	file, _ := cmd.Flags().GetString("file")
	minDuration, _ := cmd.Flags().GetDuration("min-duration")
	if file == "" {
		file = cfg.MasterOutput
	}

	detector := window.NewMarkerDetector()
	if minDuration > 0 {
		detector.MinDuration = minDuration
	}

	w, err := window.DetectFile(detector, file)
	if err != nil {
		return err
	}

	fmt.Printf("Start: %s\n", timeutils.FormatISO(w.Start))
	fmt.Printf("End: %s\n", timeutils.FormatISO(w.End))
	fmt.Printf("Duration: %s\n", timeutils.FormatDuration(w.ElapsedSeconds()))
	fmt.Printf("Operations: %d\n", w.Operations)
	fmt.Printf("Throughput: %.3f\n", w.Throughput())
	fmt.Printf("Telemetry window: %s - %s\n", timeutils.FormatISO(w.AdjustedStart()), timeutils.FormatISO(w.AdjustedEnd()))
	return nil
}
