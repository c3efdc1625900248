package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

// Ensure Pipeline implements the interface.
var (
	_ driving.IngestPipeline = (*Pipeline)(nil)
	_ driving.IngestWatcher  = (*Pipeline)(nil)
)

// PipelineOptions tunes the ingestion pipeline.
type PipelineOptions struct {
	// Workers is the number of concurrent document processors.
	Workers int

	// EmbeddingBatchSize is the number of chunk texts per embedding call.
	EmbeddingBatchSize int
}

// Pipeline runs the offline ingestion path: load, normalise, chunk,
// embed, upload. Documents are processed concurrently by a worker
// pool; the uploader consumes records keyed by chunk identity, so
// completion order never affects the index.
type Pipeline struct {
	connect      driven.ConnectorFactory
	registry     driven.NormaliserRegistry
	processorFor driven.ProcessorFactory
	embedder     driven.EmbeddingService
	index        driven.SearchIndex
	ledger       driven.IngestLedger
	policy       retry.Policy
	opts         PipelineOptions
}

// NewPipeline creates an ingestion pipeline. The processor factory is
// called once per run with the run's chunk overrides. The ledger may
// be nil when run history is not wanted.
func NewPipeline(
	connect driven.ConnectorFactory,
	registry driven.NormaliserRegistry,
	processorFor driven.ProcessorFactory,
	embedder driven.EmbeddingService,
	index driven.SearchIndex,
	ledger driven.IngestLedger,
	policy retry.Policy,
	opts PipelineOptions,
) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.EmbeddingBatchSize <= 0 {
		opts.EmbeddingBatchSize = 16
	}
	return &Pipeline{
		connect:      connect,
		registry:     registry,
		processorFor: processorFor,
		embedder:     embedder,
		index:        index,
		ledger:       ledger,
		policy:       policy,
		opts:         opts,
	}
}

// docResult is one document's outcome from a worker.
type docResult struct {
	uri     string
	records []domain.IndexRecord
	chunks  int
	failure *domain.DocumentFailure
	err     error
}

// Run ingests the folder and returns the run summary. Per-document
// failures are aggregated in the summary; the returned error is
// non-nil only for unrecoverable conditions such as a missing folder
// or an index schema failure.
func (p *Pipeline) Run(ctx context.Context, opts domain.IngestOptions) (*domain.IngestSummary, error) {
	if opts.Folder == "" {
		return nil, fmt.Errorf("%w: folder is required", domain.ErrInvalidInput)
	}

	connector, err := p.connect(opts.Folder)
	if err != nil {
		return nil, fmt.Errorf("open folder: %w", err)
	}
	defer connector.Close()

	if err := p.prepareIndex(ctx, opts.RecreateIndex); err != nil {
		return nil, err
	}

	summary := &domain.IngestSummary{
		RunID:     uuid.New().String(),
		Folder:    opts.Folder,
		StartedAt: time.Now(),
	}

	logger.Section(fmt.Sprintf("Ingesting %s", opts.Folder))

	processor := p.processorFor(opts.ChunkSize, opts.ChunkOverlap)
	records, err := p.processFolder(ctx, connector, processor, summary)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		p.upload(ctx, records, summary)
	}

	summary.FinishedAt = time.Now()
	p.recordRun(ctx, summary)

	logger.Info("Ingested %d documents, %d chunks, %d uploaded, %d failed",
		summary.Processed, summary.Chunks, summary.Uploaded, summary.Failed())
	return summary, nil
}

// Watch ingests the folder once, then re-ingests documents as they are
// created or modified, until the context is cancelled. The initial run
// summary is returned through the callback before watching begins.
func (p *Pipeline) Watch(ctx context.Context, opts domain.IngestOptions, onRun func(*domain.IngestSummary)) error {
	summary, err := p.Run(ctx, opts)
	if err != nil {
		return err
	}
	if onRun != nil {
		onRun(summary)
	}

	connector, err := p.connect(opts.Folder)
	if err != nil {
		return fmt.Errorf("open folder: %w", err)
	}
	defer connector.Close()

	events, err := connector.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch folder: %w", err)
	}

	logger.Info("Watching %s for changes", opts.Folder)

	processor := p.processorFor(opts.ChunkSize, opts.ChunkOverlap)
	for raw := range events {
		result := p.processDocument(ctx, processor, &raw)
		if result.failure != nil {
			logger.Warn("Re-ingest failed for %s (%s): %s",
				result.failure.URI, result.failure.Stage, result.failure.Reason)
			p.recordDocument(ctx, summary.RunID, result)
			continue
		}

		runSummary := &domain.IngestSummary{RunID: summary.RunID}
		p.upload(ctx, result.records, runSummary)
		p.recordDocument(ctx, summary.RunID, result)
		logger.Info("Re-ingested %s (%d chunks, %d uploaded)",
			raw.URI, result.chunks, runSummary.Uploaded)
	}

	return ctx.Err()
}

// prepareIndex drops the index when recreating, then ensures the
// schema exists with the embedder's dimension.
func (p *Pipeline) prepareIndex(ctx context.Context, recreate bool) error {
	if recreate {
		logger.Info("Recreating index")
		if err := p.index.DeleteIndex(ctx); err != nil {
			return fmt.Errorf("delete index: %w", err)
		}
	}
	if err := p.index.EnsureIndex(ctx, p.embedder.Dimensions()); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// processFolder walks the connector's documents through the worker
// pool and aggregates results into the summary. Returns the records
// to upload. A schema mismatch aborts the run.
func (p *Pipeline) processFolder(
	ctx context.Context,
	connector driven.Connector,
	processor driven.PostProcessor,
	summary *domain.IngestSummary,
) ([]domain.IndexRecord, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	docsCh, errsCh := connector.Scan(ctx)
	resultsCh := make(chan docResult)

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range docsCh {
				select {
				case resultsCh <- p.processDocument(ctx, processor, &raw):
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var records []domain.IndexRecord
	var fatal error

	for resultsCh != nil || errsCh != nil {
		select {
		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			summary.Failures = append(summary.Failures, domain.DocumentFailure{
				Stage:  "load",
				Reason: err.Error(),
			})

		case result, ok := <-resultsCh:
			if !ok {
				resultsCh = nil
				continue
			}
			if result.failure != nil {
				if fatal != nil {
					continue
				}
				if errors.Is(result.err, domain.ErrSchemaMismatch) {
					fatal = result.err
					cancel()
					continue
				}
				summary.Failures = append(summary.Failures, *result.failure)
				p.recordDocument(ctx, summary.RunID, result)
				continue
			}
			summary.Processed++
			summary.Chunks += result.chunks
			records = append(records, result.records...)
			p.recordDocument(ctx, summary.RunID, result)
		}
	}

	if fatal != nil {
		return nil, fatal
	}
	return records, nil
}

// processDocument runs one raw document through normalise, chunk and
// embed. Failures are captured per document, never propagated.
func (p *Pipeline) processDocument(ctx context.Context, processor driven.PostProcessor, raw *domain.RawDocument) docResult {
	result := docResult{uri: raw.URI}

	logger.Debug("Processing: %s", raw.URI)

	normalised, err := p.registry.Normalise(ctx, raw)
	if err != nil {
		result.err = err
		result.failure = &domain.DocumentFailure{URI: raw.URI, Stage: "normalise", Reason: err.Error()}
		return result
	}

	chunks, err := processor.Process(ctx, &normalised.Document, nil)
	if err != nil {
		result.err = err
		result.failure = &domain.DocumentFailure{URI: raw.URI, Stage: "chunk", Reason: err.Error()}
		return result
	}
	if len(chunks) == 0 {
		logger.Debug("Skipping %s: no content", raw.URI)
		return result
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		result.err = err
		result.failure = &domain.DocumentFailure{URI: raw.URI, Stage: "embed", Reason: err.Error()}
		return result
	}

	result.chunks = len(chunks)
	result.records = make([]domain.IndexRecord, 0, len(chunks))
	for _, chunk := range chunks {
		result.records = append(result.records, domain.RecordFromChunk(chunk))
	}
	return result
}

// embedChunks fills in the chunk embeddings, batching texts per call.
// Vectors that do not match the configured dimension indicate the
// deployment and index schema disagree.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	dimension := p.embedder.Dimensions()

	for start := 0; start < len(chunks); start += p.opts.EmbeddingBatchSize {
		end := start + p.opts.EmbeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}

		var vectors [][]float32
		err := p.policy.Do(ctx, "embed batch", func(ctx context.Context) error {
			var embedErr error
			vectors, embedErr = p.embedder.EmbedBatch(ctx, texts)
			return embedErr
		})
		if err != nil {
			return err
		}

		for i, vector := range vectors {
			if len(vector) != dimension {
				return fmt.Errorf("%w: got %d-dim vector, index expects %d",
					domain.ErrSchemaMismatch, len(vector), dimension)
			}
			chunks[start+i].Embedding = vector
		}
	}
	return nil
}

// upload pushes the records and folds the outcome into the summary.
// Permanently failed batches become upload failures listing the
// affected keys; accepted records are never rolled back.
func (p *Pipeline) upload(ctx context.Context, records []domain.IndexRecord, summary *domain.IngestSummary) {
	var result *driven.UploadResult
	err := p.policy.Do(ctx, "upload records", func(ctx context.Context) error {
		var uploadErr error
		result, uploadErr = p.index.Upload(ctx, records)
		return uploadErr
	})

	if result != nil {
		summary.Uploaded += result.Uploaded
		for _, key := range result.FailedKeys {
			summary.Failures = append(summary.Failures, domain.DocumentFailure{
				URI:    key,
				Stage:  "upload",
				Reason: "index rejected record",
			})
		}
	}
	if err != nil && (result == nil || len(result.FailedKeys) == 0) {
		summary.Failures = append(summary.Failures, domain.DocumentFailure{
			Stage:  "upload",
			Reason: err.Error(),
		})
	}
}

// recordRun writes the run summary to the ledger.
func (p *Pipeline) recordRun(ctx context.Context, summary *domain.IngestSummary) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordRun(ctx, summary); err != nil {
		logger.Warn("Failed to record run: %v", err)
	}
}

// recordDocument writes one document's outcome to the ledger.
func (p *Pipeline) recordDocument(ctx context.Context, runID string, result docResult) {
	if p.ledger == nil || result.uri == "" {
		return
	}
	status, reason := "ok", ""
	if result.failure != nil {
		status, reason = "failed", result.failure.Reason
	}
	if err := p.ledger.RecordDocument(ctx, runID, result.uri, status, reason, result.chunks); err != nil {
		logger.Warn("Failed to record document: %v", err)
	}
}
