package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

var (
	ingestRecreate     bool
	ingestWatch        bool
	ingestHistory      int
	ingestChunkSize    int
	ingestChunkOverlap int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder]",
	Short: "Ingest documents into the search index",
	Long: `Loads every supported document under the folder, splits it into
overlapping chunks, embeds the chunks and uploads them to the search
index. Supported formats: PDF, DOCX, TXT, MD and HTML.

With --watch the command keeps running and re-ingests documents as
they change. With --history it prints recent ingestion runs instead
of ingesting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate-index", false, "delete and recreate the index before ingesting")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep watching the folder for changes")
	ingestCmd.Flags().IntVar(&ingestHistory, "history", 0, "show the N most recent runs and exit")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk size in characters (overrides config)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "chunk overlap in characters (overrides config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestHistory > 0 {
		return showIngestHistory(cmd, ingestHistory)
	}

	if len(args) == 0 {
		return errors.New("folder argument is required")
	}
	if ingestPipeline == nil {
		return errors.New("ingestion not configured; run `docqa doctor`")
	}

	opts := domain.IngestOptions{
		Folder:        args[0],
		ChunkSize:     ingestChunkSize,
		ChunkOverlap:  ingestChunkOverlap,
		RecreateIndex: ingestRecreate,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ingestWatch {
		return watchFolder(ctx, cmd, opts)
	}

	summary, err := ingestPipeline.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	printSummary(cmd, summary)
	if summary.AllFailed() {
		return errors.New("no documents could be ingested")
	}
	return nil
}

func watchFolder(ctx context.Context, cmd *cobra.Command, opts domain.IngestOptions) error {
	if ingestWatcher == nil {
		return errors.New("watch mode not configured")
	}

	err := ingestWatcher.Watch(ctx, opts, func(summary *domain.IngestSummary) {
		printSummary(cmd, summary)
		cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	})
	if errors.Is(err, context.Canceled) {
		cmd.Println("Stopped watching.")
		return nil
	}
	return err
}

func printSummary(cmd *cobra.Command, summary *domain.IngestSummary) {
	cmd.Printf("Ingested %s\n", summary.Folder)
	cmd.Printf("  documents: %d\n", summary.Processed)
	cmd.Printf("  chunks:    %d\n", summary.Chunks)
	cmd.Printf("  uploaded:  %d\n", summary.Uploaded)
	cmd.Printf("  duration:  %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(timePrecision))

	if len(summary.Failures) > 0 {
		cmd.Printf("  failures:  %d\n", len(summary.Failures))
		for _, f := range summary.Failures {
			cmd.Printf("    %s: %s (%s)\n", f.URI, f.Reason, f.Stage)
		}
	}
}

func showIngestHistory(cmd *cobra.Command, limit int) error {
	if ingestLedger == nil {
		return errors.New("ingest history not available")
	}

	runs, err := ingestLedger.Runs(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("read ingest history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No ingestion runs recorded.")
		return nil
	}

	for _, run := range runs {
		status := "ok"
		if run.Failed() > 0 {
			status = fmt.Sprintf("%d failures", len(run.Failures))
		}
		cmd.Printf("%s  %-30s  %4d docs  %5d chunks  %s\n",
			run.StartedAt.Format("2006-01-02 15:04"), run.Folder, run.Processed, run.Chunks, status)
	}
	return nil
}
