package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var metricsOut string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show query metrics for this process",
	RunE:  runMetrics,
}

var metricsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export query metrics to a JSON file",
	RunE:  runMetricsExport,
}

func init() {
	metricsExportCmd.Flags().StringVar(&metricsOut, "out", "metrics.json", "output file path")
	metricsCmd.AddCommand(metricsExportCmd)
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	if collector == nil {
		return errors.New("metrics not available")
	}

	s := collector.Summary()
	cmd.Printf("queries:           %d\n", s.TotalQueries)
	cmd.Printf("errors:            %d (%.1f%%)\n", s.TotalErrors, s.ErrorRatePercent)
	cmd.Printf("tokens used:       %d\n", s.TotalTokens)
	cmd.Printf("avg tokens/query:  %.1f\n", s.AvgTokensPerQ)
	cmd.Printf("avg latency:       %.0fms\n", s.AvgLatencyMs)
	return nil
}

func runMetricsExport(cmd *cobra.Command, _ []string) error {
	if collector == nil {
		return errors.New("metrics not available")
	}

	if err := collector.ExportJSON(metricsOut); err != nil {
		return fmt.Errorf("export metrics: %w", err)
	}
	cmd.Printf("Metrics written to %s\n", metricsOut)
	return nil
}
