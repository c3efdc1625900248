package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and service connectivity",
	Long: `Validates the configuration and probes the embedding deployment,
the search service and the chat deployment. Exits non-zero when any
check fails.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if diagnostics == nil {
		return errors.New("diagnostics not available")
	}

	results := diagnostics.Check(context.Background())

	failed := 0
	for _, r := range results {
		mark := "ok"
		if !r.Passed {
			mark = "FAIL"
			failed++
		}
		cmd.Printf("  [%-4s] %-20s %s\n", mark, r.Name, r.Detail)
	}

	if failed > 0 {
		return errors.New("some checks failed")
	}
	cmd.Println("All checks passed.")
	return nil
}
