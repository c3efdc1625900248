package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long: `Opens a terminal chat session. Each question is answered from the
indexed documents with cited sources. Press Ctrl+C to exit.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("question answering not configured; run `docqa doctor`")
	}
	return tui.Run(answerService)
}
