package domain

import "time"

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// Folder is the documents directory to ingest.
	Folder string

	// ChunkSize and ChunkOverlap override the configured defaults
	// when non-zero.
	ChunkSize    int
	ChunkOverlap int

	// RecreateIndex drops and rebuilds the index before uploading.
	RecreateIndex bool
}

// DocumentFailure records a single document that could not be ingested.
// Per-document failures never abort the run.
type DocumentFailure struct {
	// URI is the file that failed.
	URI string

	// Stage is where it failed: "load", "normalise", "embed" or "upload".
	Stage string

	// Reason is the error message.
	Reason string
}

// IngestSummary aggregates the outcome of an ingestion run.
type IngestSummary struct {
	// RunID identifies the run.
	RunID string

	// Folder is the ingested directory.
	Folder string

	// Processed is the number of documents loaded and normalised.
	Processed int

	// Chunks is the number of chunks produced.
	Chunks int

	// Uploaded is the number of index records accepted by the service.
	Uploaded int

	// Failures lists documents (or upload batches) that failed.
	Failures []DocumentFailure

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports how many documents failed.
func (s *IngestSummary) Failed() int {
	return len(s.Failures)
}

// AllFailed is true when documents were found but none survived loading.
// A run where every document failed exits non-zero.
func (s *IngestSummary) AllFailed() bool {
	return s.Processed == 0 && len(s.Failures) > 0
}
