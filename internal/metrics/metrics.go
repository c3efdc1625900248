// Package metrics collects per-query timings and token usage.
//
// The Collector is constructed at process start and passed by
// reference to the components that record into it; there is no
// package-level singleton. Counters use atomics so concurrent
// queries combine safely; the per-query record list takes a mutex.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// QueryRecord captures the metrics of a single query.
type QueryRecord struct {
	Question       string        `json:"question"`
	Timestamp      time.Time     `json:"timestamp"`
	RetrievalTime  time.Duration `json:"retrieval_time_ns"`
	GenerationTime time.Duration `json:"generation_time_ns"`
	TotalTime      time.Duration `json:"total_time_ns"`
	NumResults     int           `json:"num_results"`
	TokensUsed     int           `json:"tokens_used"`
	Error          string        `json:"error,omitempty"`
}

// Summary aggregates all recorded queries.
type Summary struct {
	TotalQueries     int64   `json:"total_queries"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalErrors      int64   `json:"total_errors"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	AvgTokensPerQ    float64 `json:"avg_tokens_per_query"`
	ErrorRatePercent float64 `json:"error_rate_percent"`
}

// Collector accumulates query metrics for the lifetime of the process.
type Collector struct {
	totalQueries atomic.Int64
	totalTokens  atomic.Int64
	totalErrors  atomic.Int64

	mu      sync.Mutex
	records []QueryRecord
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record stores one query's metrics.
func (c *Collector) Record(rec QueryRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	c.totalQueries.Add(1)
	c.totalTokens.Add(int64(rec.TokensUsed))
	if rec.Error != "" {
		c.totalErrors.Add(1)
	}

	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
}

// Summary returns aggregate statistics over all recorded queries.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	var totalTime time.Duration
	n := len(c.records)
	for i := range c.records {
		totalTime += c.records[i].TotalTime
	}
	c.mu.Unlock()

	s := Summary{
		TotalQueries: c.totalQueries.Load(),
		TotalTokens:  c.totalTokens.Load(),
		TotalErrors:  c.totalErrors.Load(),
	}
	if n > 0 {
		s.AvgLatencyMs = float64(totalTime.Milliseconds()) / float64(n)
		s.AvgTokensPerQ = float64(s.TotalTokens) / float64(n)
		s.ErrorRatePercent = float64(s.TotalErrors) / float64(n) * 100
	}
	return s
}

// Recent returns up to n most recent query records, oldest first.
func (c *Collector) Recent(n int) []QueryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.records) {
		n = len(c.records)
	}
	out := make([]QueryRecord, n)
	copy(out, c.records[len(c.records)-n:])
	return out
}

// export is the serialised collector state.
type export struct {
	Summary Summary       `json:"summary"`
	Queries []QueryRecord `json:"queries"`
}

// ExportJSON writes the summary and all query records to path.
func (c *Collector) ExportJSON(path string) error {
	data := export{
		Summary: c.Summary(),
		Queries: c.Recent(0),
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
