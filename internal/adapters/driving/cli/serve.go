package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web question interface",
	Long: `Starts an HTTP server with a browser form for asking questions,
plus a JSON API (/api/ask, /api/metrics) and a health endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("question answering not configured; run `docqa doctor`")
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	server, err := web.NewServer(answerService, collector, addr, requestTimeout())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Serving on %s\n", addr)
	return server.ListenAndServe(ctx)
}
