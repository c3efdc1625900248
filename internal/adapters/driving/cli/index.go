package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the search index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the search index if it does not exist",
	RunE:  runIndexCreate,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the search index and all its documents",
	RunE:  runIndexDelete,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the search index status",
	RunE:  runIndexStatus,
}

var indexDeleteYes bool

func init() {
	indexDeleteCmd.Flags().BoolVarP(&indexDeleteYes, "yes", "y", false, "skip the confirmation prompt")
	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexDeleteCmd)
	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexCreate(cmd *cobra.Command, _ []string) error {
	if searchIndex == nil {
		return errors.New("search service not configured; run `docqa doctor`")
	}

	dimension := cfg.EmbeddingDimension
	if embeddingService != nil {
		dimension = embeddingService.Dimensions()
	}

	if err := searchIndex.EnsureIndex(context.Background(), dimension); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	cmd.Printf("Index %s ready (%d dimensions).\n", cfg.SearchIndex, dimension)
	return nil
}

func runIndexDelete(cmd *cobra.Command, _ []string) error {
	if searchIndex == nil {
		return errors.New("search service not configured; run `docqa doctor`")
	}

	if !indexDeleteYes {
		cmd.Printf("Delete index %s and all its documents? [y/N]: ", cfg.SearchIndex)
		var reply string
		fmt.Fscanln(cmd.InOrStdin(), &reply)
		if reply != "y" && reply != "Y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := searchIndex.DeleteIndex(context.Background()); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	cmd.Printf("Index %s deleted.\n", cfg.SearchIndex)
	return nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if searchIndex == nil {
		return errors.New("search service not configured; run `docqa doctor`")
	}

	ctx := context.Background()
	exists, err := searchIndex.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if !exists {
		cmd.Printf("Index %s does not exist. Run `docqa index create` or `docqa ingest`.\n", cfg.SearchIndex)
		return nil
	}

	count, err := searchIndex.DocumentCount(ctx)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	cmd.Printf("Index %s: %d documents.\n", cfg.SearchIndex, count)
	return nil
}
