// Package cli wires the application together and exposes it as a
// cobra command tree. All construction happens in the persistent
// pre-run so that tests can swap the package-level services for mocks.
package cli

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	fileconfig "github.com/custodia-labs/docqa-cli/internal/adapters/driven/config/file"
	searchazure "github.com/custodia-labs/docqa-cli/internal/adapters/driven/search/azure"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa-cli/internal/config"
	"github.com/custodia-labs/docqa-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/core/services"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metrics"
	"github.com/custodia-labs/docqa-cli/internal/normalisers"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/docx"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/html"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/plaintext"
	"github.com/custodia-labs/docqa-cli/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa-cli/internal/retry"

	aiazure "github.com/custodia-labs/docqa-cli/internal/adapters/driven/ai/azure"
)

// Set by Execute.
var version = "dev"

// timePrecision rounds durations in human-facing output.
const timePrecision = time.Millisecond

// Persistent flags.
var (
	cfgFile string
	envFile string
	verbose bool
)

// Configuration and wired services. Commands check for nil before use:
// a missing or incomplete configuration leaves the service nil, and
// `docqa doctor` explains what is wrong.
var (
	cfg *config.Config

	answerService  driving.AnswerService
	ingestPipeline driving.IngestPipeline
	ingestWatcher  driving.IngestWatcher
	diagnostics    driving.Diagnostics

	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
	searchIndex      driven.SearchIndex
	ingestLedger     driven.IngestLedger

	collector *metrics.Collector
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over your documents",
	Long: `docqa ingests a folder of documents into a hybrid search index and
answers questions about them with cited sources.

Configuration comes from ~/.docqa/config.toml and the environment;
run "docqa doctor" to check connectivity before the first ingest.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialise,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.docqa/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command. v is the build version stamped by the
// linker.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

func initialise(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	loadDotenv()

	path := cfgFile
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if collector == nil {
		collector = metrics.NewCollector()
	}

	if ledger, err := sqlite.NewLedger(cfg.DataDir); err != nil {
		logger.Warn("Ingest history unavailable: %v", err)
	} else {
		ingestLedger = ledger
	}

	// Building the remote adapters needs a complete configuration.
	// Leave the services nil otherwise; doctor still runs the config
	// check and commands report "not configured".
	if err := cfg.Validate(); err != nil {
		logger.Debug("Configuration incomplete: %v", err)
		diagnostics = services.NewDoctor(cfg.Validate, nil, nil, nil)
		return nil
	}

	return buildServices()
}

func loadDotenv() {
	path := envFile
	explicit := path != ""
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			logger.Warn("Could not load %s: %v", path, err)
		}
		return
	}
	logger.Debug("Loaded environment from %s", path)
}

func buildServices() error {
	embedder, err := aiazure.NewEmbeddingService(aiazure.EmbeddingConfig{
		Endpoint:          cfg.OpenAIEndpoint,
		APIKey:            cfg.OpenAIKey,
		APIVersion:        cfg.APIVersion,
		Deployment:        cfg.EmbeddingDeployment,
		Dimensions:        cfg.EmbeddingDimension,
		Timeout:           cfg.RequestTimeout,
		RequestsPerMinute: cfg.EmbedRPM,
	})
	if err != nil {
		return err
	}
	embeddingService = embedder

	llm, err := aiazure.NewLLMService(aiazure.LLMConfig{
		Endpoint:   cfg.OpenAIEndpoint,
		APIKey:     cfg.OpenAIKey,
		APIVersion: cfg.APIVersion,
		Deployment: cfg.ChatDeployment,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}
	llmService = llm

	index, err := searchazure.NewClient(searchazure.Config{
		Endpoint:  cfg.SearchEndpoint,
		APIKey:    cfg.SearchKey,
		IndexName: cfg.SearchIndex,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}
	searchIndex = index

	prompts, err := fileconfig.NewPromptStore(cfg.PromptDir)
	if err != nil {
		return err
	}

	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}

	retriever := services.NewRetriever(embedder, index, policy, queryOptions())
	answerService = services.NewRAGChain(retriever, llm, prompts, collector, policy, services.RAGOptions{
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		ContextCharBudget: cfg.ContextCharBudget,
		RequestTimeout:    cfg.RequestTimeout,
	})

	pipeline := services.NewPipeline(
		folderConnector,
		documentRegistry(),
		chunkerFactory,
		embedder,
		index,
		ingestLedger,
		policy,
		services.PipelineOptions{
			Workers:            cfg.IngestWorkers,
			EmbeddingBatchSize: cfg.EmbeddingBatchSize,
		},
	)
	ingestPipeline = pipeline
	ingestWatcher = pipeline

	diagnostics = services.NewDoctor(cfg.Validate, embedder, llm, index)

	return nil
}

func queryOptions() domain.QueryOptions {
	return domain.QueryOptions{
		TopK:            cfg.TopK,
		MinScore:        cfg.MinScore,
		Hybrid:          cfg.HybridSearch,
		SemanticRanking: cfg.SemanticRanking,
		VectorWeight:    cfg.VectorWeight,
	}
}

func folderConnector(folder string) (driven.Connector, error) {
	return filesystem.New(folder), nil
}

// chunkerFactory builds the chunker for one ingestion run. Non-zero
// size and overlap come from the ingest command's override flags.
func chunkerFactory(size, overlap int) driven.PostProcessor {
	if size <= 0 {
		size = cfg.ChunkSize
	}
	if overlap <= 0 {
		overlap = cfg.ChunkOverlap
	}
	return chunker.New(
		chunker.WithChunkSize(size),
		chunker.WithOverlap(overlap),
	)
}

func documentRegistry() *normalisers.Registry {
	registry := normalisers.NewRegistry()
	registry.Register(pdf.New())
	registry.Register(docx.New())
	registry.Register(html.New())
	registry.Register(markdown.New())
	registry.Register(plaintext.New())
	return registry
}

// requestTimeout returns the configured per-request timeout, falling
// back to a sane bound when configuration never loaded.
func requestTimeout() time.Duration {
	if cfg != nil && cfg.RequestTimeout > 0 {
		return cfg.RequestTimeout
	}
	return 30 * time.Second
}
