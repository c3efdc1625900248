// Package config builds the immutable application configuration.
//
// Configuration is assembled once at startup and passed explicitly to
// every component constructor. Values come from an optional TOML file
// layered under environment variables; the environment wins. A .env
// file, when present, is loaded into the environment by the CLI before
// this package runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults for tunable settings.
const (
	DefaultChunkSize          = 1000
	DefaultChunkOverlap       = 200
	DefaultTopK               = 5
	DefaultEmbeddingDimension = 1536
	DefaultEmbeddingBatchSize = 16
	DefaultTemperature        = 0.7
	DefaultMaxTokens          = 1000
	DefaultRequestTimeout     = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultVectorWeight       = 0.6
	DefaultIngestWorkers      = 4
	DefaultEmbedRPM           = 300
	DefaultListenAddr         = ":8080"
	DefaultAPIVersion         = "2024-08-01-preview"
)

// Config is the immutable application configuration.
type Config struct {
	// Inference endpoint (chat + embeddings).
	OpenAIEndpoint      string
	OpenAIKey           string
	APIVersion          string
	ChatDeployment      string
	EmbeddingDeployment string

	// Search service.
	SearchEndpoint string
	SearchKey      string
	SearchIndex    string

	// Document processing.
	ChunkSize          int
	ChunkOverlap       int
	EmbeddingDimension int
	EmbeddingBatchSize int
	EmbedRPM           int
	IngestWorkers      int

	// Retrieval.
	TopK            int
	MinScore        float64
	HybridSearch    bool
	SemanticRanking bool
	VectorWeight    float64

	// Generation.
	Temperature       float32
	MaxTokens         int
	ContextCharBudget int

	// Request handling.
	RequestTimeout time.Duration
	MaxRetries     int

	// Local paths and serving.
	DataDir    string
	PromptDir  string
	ListenAddr string
}

// fileConfig mirrors the TOML file layout. Pointer fields distinguish
// unset keys from explicit zeroes.
type fileConfig struct {
	OpenAIEndpoint      *string  `toml:"openai_endpoint"`
	OpenAIKey           *string  `toml:"openai_key"`
	APIVersion          *string  `toml:"api_version"`
	ChatDeployment      *string  `toml:"chat_deployment"`
	EmbeddingDeployment *string  `toml:"embedding_deployment"`
	SearchEndpoint      *string  `toml:"search_endpoint"`
	SearchKey           *string  `toml:"search_key"`
	SearchIndex         *string  `toml:"search_index"`
	ChunkSize           *int     `toml:"chunk_size"`
	ChunkOverlap        *int     `toml:"chunk_overlap"`
	EmbeddingDimension  *int     `toml:"embedding_dimension"`
	EmbeddingBatchSize  *int     `toml:"embedding_batch_size"`
	EmbedRPM            *int     `toml:"embed_requests_per_minute"`
	IngestWorkers       *int     `toml:"ingest_workers"`
	TopK                *int     `toml:"max_retrieval_results"`
	MinScore            *float64 `toml:"min_relevance_score"`
	HybridSearch        *bool    `toml:"enable_hybrid_search"`
	SemanticRanking     *bool    `toml:"enable_semantic_ranking"`
	VectorWeight        *float64 `toml:"vector_weight"`
	Temperature         *float64 `toml:"temperature"`
	MaxTokens           *int     `toml:"max_tokens"`
	ContextCharBudget   *int     `toml:"context_char_budget"`
	RequestTimeout      *int     `toml:"request_timeout"`
	MaxRetries          *int     `toml:"max_retries"`
	DataDir             *string  `toml:"data_dir"`
	PromptDir           *string  `toml:"prompt_dir"`
	ListenAddr          *string  `toml:"listen_addr"`
}

// DefaultPath returns the default config file location,
// ~/.docqa/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".docqa", "config.toml"), nil
}

// Load builds the configuration from the TOML file at path (skipped
// when path is empty or the file does not exist) and the environment.
// The result is not validated; call Validate before use.
func Load(path string) (*Config, error) {
	cfg := &Config{
		APIVersion:         DefaultAPIVersion,
		ChunkSize:          DefaultChunkSize,
		ChunkOverlap:       DefaultChunkOverlap,
		EmbeddingDimension: DefaultEmbeddingDimension,
		EmbeddingBatchSize: DefaultEmbeddingBatchSize,
		EmbedRPM:           DefaultEmbedRPM,
		IngestWorkers:      DefaultIngestWorkers,
		TopK:               DefaultTopK,
		HybridSearch:       true,
		SemanticRanking:    true,
		VectorWeight:       DefaultVectorWeight,
		Temperature:        DefaultTemperature,
		MaxTokens:          DefaultMaxTokens,
		RequestTimeout:     DefaultRequestTimeout,
		MaxRetries:         DefaultMaxRetries,
		ListenAddr:         DefaultListenAddr,
	}

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// Context budget defaults to four characters per completion token,
	// leaving the rest of the window to the prompt scaffolding.
	if cfg.ContextCharBudget <= 0 {
		cfg.ContextCharBudget = 4 * cfg.MaxTokens
	}
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".docqa", "data")
		}
	}
	if cfg.PromptDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.PromptDir = filepath.Join(home, ".docqa", "prompts")
		}
	}

	return cfg, nil
}

// applyFile layers the TOML file onto cfg. A missing file is not an error.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.OpenAIEndpoint, fc.OpenAIEndpoint)
	setString(&cfg.OpenAIKey, fc.OpenAIKey)
	setString(&cfg.APIVersion, fc.APIVersion)
	setString(&cfg.ChatDeployment, fc.ChatDeployment)
	setString(&cfg.EmbeddingDeployment, fc.EmbeddingDeployment)
	setString(&cfg.SearchEndpoint, fc.SearchEndpoint)
	setString(&cfg.SearchKey, fc.SearchKey)
	setString(&cfg.SearchIndex, fc.SearchIndex)
	setInt(&cfg.ChunkSize, fc.ChunkSize)
	setInt(&cfg.ChunkOverlap, fc.ChunkOverlap)
	setInt(&cfg.EmbeddingDimension, fc.EmbeddingDimension)
	setInt(&cfg.EmbeddingBatchSize, fc.EmbeddingBatchSize)
	setInt(&cfg.EmbedRPM, fc.EmbedRPM)
	setInt(&cfg.IngestWorkers, fc.IngestWorkers)
	setInt(&cfg.TopK, fc.TopK)
	setInt(&cfg.MaxTokens, fc.MaxTokens)
	setInt(&cfg.ContextCharBudget, fc.ContextCharBudget)
	setInt(&cfg.MaxRetries, fc.MaxRetries)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.PromptDir, fc.PromptDir)
	setString(&cfg.ListenAddr, fc.ListenAddr)

	if fc.MinScore != nil {
		cfg.MinScore = *fc.MinScore
	}
	if fc.VectorWeight != nil {
		cfg.VectorWeight = *fc.VectorWeight
	}
	if fc.HybridSearch != nil {
		cfg.HybridSearch = *fc.HybridSearch
	}
	if fc.SemanticRanking != nil {
		cfg.SemanticRanking = *fc.SemanticRanking
	}
	if fc.Temperature != nil {
		cfg.Temperature = float32(*fc.Temperature)
	}
	if fc.RequestTimeout != nil && *fc.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(*fc.RequestTimeout) * time.Second
	}

	return nil
}

// Environment variable names. These match the deployment templates.
const (
	EnvOpenAIEndpoint      = "AZURE_OPENAI_ENDPOINT"
	EnvOpenAIKey           = "AZURE_OPENAI_KEY"
	EnvAPIVersion          = "AZURE_OPENAI_API_VERSION"
	EnvChatDeployment      = "CHAT_DEPLOYMENT"
	EnvEmbeddingDeployment = "EMBEDDING_DEPLOYMENT"
	EnvSearchEndpoint      = "AZURE_SEARCH_ENDPOINT"
	EnvSearchKey           = "AZURE_SEARCH_KEY"
	EnvSearchIndex         = "AZURE_SEARCH_INDEX"
)

func applyEnv(cfg *Config) error {
	var errs []error

	envString(&cfg.OpenAIEndpoint, EnvOpenAIEndpoint)
	envString(&cfg.OpenAIKey, EnvOpenAIKey)
	envString(&cfg.APIVersion, EnvAPIVersion)
	envString(&cfg.ChatDeployment, EnvChatDeployment)
	envString(&cfg.EmbeddingDeployment, EnvEmbeddingDeployment)
	envString(&cfg.SearchEndpoint, EnvSearchEndpoint)
	envString(&cfg.SearchKey, EnvSearchKey)
	envString(&cfg.SearchIndex, EnvSearchIndex)
	envString(&cfg.DataDir, "DATA_DIR")
	envString(&cfg.PromptDir, "PROMPT_DIR")
	envString(&cfg.ListenAddr, "LISTEN_ADDR")

	errs = append(errs,
		envInt(&cfg.ChunkSize, "CHUNK_SIZE"),
		envInt(&cfg.ChunkOverlap, "CHUNK_OVERLAP"),
		envInt(&cfg.TopK, "MAX_RETRIEVAL_RESULTS"),
		envInt(&cfg.EmbeddingDimension, "EMBEDDING_DIMENSION"),
		envInt(&cfg.EmbeddingBatchSize, "EMBEDDING_BATCH_SIZE"),
		envInt(&cfg.EmbedRPM, "EMBED_REQUESTS_PER_MINUTE"),
		envInt(&cfg.IngestWorkers, "INGEST_WORKERS"),
		envInt(&cfg.MaxTokens, "MAX_TOKENS"),
		envInt(&cfg.ContextCharBudget, "CONTEXT_CHAR_BUDGET"),
		envInt(&cfg.MaxRetries, "MAX_RETRIES"),
		envFloat(&cfg.MinScore, "MIN_RELEVANCE_SCORE"),
		envFloat(&cfg.VectorWeight, "VECTOR_WEIGHT"),
		envBool(&cfg.HybridSearch, "ENABLE_HYBRID_SEARCH"),
		envBool(&cfg.SemanticRanking, "ENABLE_SEMANTIC_RANKING"),
		envTemperature(&cfg.Temperature, "TEMPERATURE"),
		envTimeout(&cfg.RequestTimeout, "REQUEST_TIMEOUT"),
	)

	return errors.Join(errs...)
}

// Validate checks that every required setting is present and every
// numeric setting is sane. All problems are reported together so a
// broken deployment can be fixed in one pass.
func (c *Config) Validate() error {
	var problems []string

	required := []struct {
		value string
		env   string
	}{
		{c.OpenAIEndpoint, EnvOpenAIEndpoint},
		{c.OpenAIKey, EnvOpenAIKey},
		{c.ChatDeployment, EnvChatDeployment},
		{c.EmbeddingDeployment, EnvEmbeddingDeployment},
		{c.SearchEndpoint, EnvSearchEndpoint},
		{c.SearchKey, EnvSearchKey},
		{c.SearchIndex, EnvSearchIndex},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.env+" is required")
		}
	}

	if c.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 {
		problems = append(problems, "CHUNK_OVERLAP must not be negative")
	}
	if c.ChunkOverlap >= c.ChunkSize && c.ChunkSize > 0 {
		problems = append(problems, "CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	if c.TopK <= 0 {
		problems = append(problems, "MAX_RETRIEVAL_RESULTS must be positive")
	}
	if c.EmbeddingDimension <= 0 {
		problems = append(problems, "EMBEDDING_DIMENSION must be positive")
	}
	if c.VectorWeight < 0 || c.VectorWeight > 1 {
		problems = append(problems, "VECTOR_WEIGHT must be between 0 and 1")
	}
	if c.IngestWorkers <= 0 {
		problems = append(problems, "INGEST_WORKERS must be positive")
	}
	if c.EmbedRPM < 0 {
		problems = append(problems, "EMBED_REQUESTS_PER_MINUTE must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration invalid:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func envFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, v)
	}
	*dst = f
	return nil
}

func envBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

func envTemperature(dst *float32, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, v)
	}
	*dst = float32(f)
	return nil
}

// envTimeout accepts either a bare integer (seconds) or a Go duration
// string such as "30s".
func envTimeout(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a duration", key, v)
	}
	*dst = d
	return nil
}
