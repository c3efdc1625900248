// Package memory provides in-memory implementations of driven ports,
// used in tests and wherever persistence is not required.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.IngestLedger = (*Ledger)(nil)

// DocumentRecord is one per-document outcome within a run.
type DocumentRecord struct {
	RunID  string
	URI    string
	Status string
	Reason string
	Chunks int
}

// Ledger is an in-memory implementation of driven.IngestLedger.
type Ledger struct {
	mu        sync.RWMutex
	runs      map[string]domain.IngestSummary
	documents []DocumentRecord
}

// NewLedger creates a new in-memory ingest ledger.
func NewLedger() *Ledger {
	return &Ledger{
		runs: make(map[string]domain.IngestSummary),
	}
}

// RecordRun stores or updates a run summary.
func (l *Ledger) RecordRun(_ context.Context, summary *domain.IngestSummary) error {
	if summary == nil || summary.RunID == "" {
		return domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[summary.RunID] = *summary
	return nil
}

// RecordDocument stores one document's outcome within a run.
func (l *Ledger) RecordDocument(_ context.Context, runID, uri, status, reason string, chunks int) error {
	if runID == "" || uri == "" {
		return domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.documents = append(l.documents, DocumentRecord{
		RunID:  runID,
		URI:    uri,
		Status: status,
		Reason: reason,
		Chunks: chunks,
	})
	return nil
}

// LastRun returns the most recent run summary.
func (l *Ledger) LastRun(_ context.Context) (*domain.IngestSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	runs := l.sorted()
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &runs[0], nil
}

// Runs returns up to limit recent run summaries, newest first.
func (l *Ledger) Runs(_ context.Context, limit int) ([]domain.IngestSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	runs := l.sorted()
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close is a no-op for the in-memory ledger.
func (l *Ledger) Close() error {
	return nil
}

// Documents returns recorded outcomes for a run, in recording order.
func (l *Ledger) Documents(runID string) []DocumentRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []DocumentRecord
	for _, rec := range l.documents {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out
}

// sorted returns all runs newest first. Caller must hold the lock.
func (l *Ledger) sorted() []domain.IngestSummary {
	runs := make([]domain.IngestSummary, 0, len(l.runs))
	for _, run := range l.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}
