package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

var (
	askJSON    bool
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the most relevant chunks from the search index and asks
the chat model to answer from them. The answer cites its sources as
[Source N] markers resolved to file names and page numbers.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "include the retrieved chunks in the output")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("question answering not configured; run `docqa doctor`")
	}

	answer, err := answerService.Ask(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errors.New("question must not be empty")
		}
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswerText(cmd, answer)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			cmd.Printf("  %s %s\n", c.Marker, formatCitation(c))
		}
	}

	if askSources && len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Retrieved chunks:")
		for i, s := range answer.Sources {
			cmd.Printf("  %d. %s (page %d, score %.3f)\n", i+1, s.SourceFile, s.PageNumber, s.Score)
			cmd.Printf("     %s\n", truncate(s.Content, 160))
		}
	}

	if !answer.Failed {
		cmd.Println()
		cmd.Printf("retrieval %s, generation %s, %d tokens\n",
			answer.RetrievalTime.Round(timePrecision),
			answer.GenerationTime.Round(timePrecision),
			answer.Usage.TotalTokens)
	}
}

func formatCitation(c domain.Citation) string {
	s := c.SourceFile
	if c.PageNumber > 0 {
		s += fmt.Sprintf(", page %d", c.PageNumber)
	}
	if c.Title != "" && c.Title != c.SourceFile {
		s += " (" + c.Title + ")"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
