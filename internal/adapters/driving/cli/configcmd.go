package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa-cli/internal/config"
)

// Keys accepted by `docqa config set-key`. Both hold secrets, so the
// value is prompted for without echo rather than taken as an argument.
var secretKeys = map[string]string{
	"openai_key": "Azure OpenAI API key",
	"search_key": "Azure AI Search API key",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [openai_key|search_key]",
	Short: "Store an API key in the config file",
	Long: `Prompts for an API key and writes it to the config file, so the
secret never appears in shell history. The file is created with
owner-only permissions.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	cmd.Println("[Inference]")
	cmd.Printf("  Endpoint:             %s\n", orUnset(cfg.OpenAIEndpoint))
	cmd.Printf("  API key:              %s\n", maskOrUnset(cfg.OpenAIKey))
	cmd.Printf("  Chat deployment:      %s\n", orUnset(cfg.ChatDeployment))
	cmd.Printf("  Embedding deployment: %s\n", orUnset(cfg.EmbeddingDeployment))
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Endpoint: %s\n", orUnset(cfg.SearchEndpoint))
	cmd.Printf("  API key:  %s\n", maskOrUnset(cfg.SearchKey))
	cmd.Printf("  Index:    %s\n", orUnset(cfg.SearchIndex))
	cmd.Println()

	cmd.Println("[Processing]")
	cmd.Printf("  Chunk size:    %d\n", cfg.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", cfg.ChunkOverlap)
	cmd.Printf("  Top K:         %d\n", cfg.TopK)
	cmd.Printf("  Workers:       %d\n", cfg.IngestWorkers)

	if err := cfg.Validate(); err != nil {
		cmd.Println()
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	key := args[0]
	label, ok := secretKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q (expected openai_key or search_key)", key)
	}

	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cmd.Printf("%s: ", label)
	value := readPassword()
	cmd.Println()
	if value == "" {
		return errors.New("no value entered")
	}

	if err := config.SaveValue(path, key, value); err != nil {
		return err
	}
	cmd.Printf("Saved %s to %s\n", key, path)
	return nil
}

func readPassword() string {
	// Read without echo when attached to a terminal.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return maskAPIKey(s)
}
