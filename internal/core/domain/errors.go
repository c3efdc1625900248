package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file format no normaliser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRateLimited indicates the external service rejected the call
	// with a rate-limit response. Retried with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a temporary service failure (5xx, reset
	// connection). Retried with backoff.
	ErrTransient = errors.New("transient service error")

	// ErrTimeout indicates the query exceeded the configured deadline.
	// Surfaced to the caller; no partial result is returned.
	ErrTimeout = errors.New("request timed out")

	// ErrSchemaMismatch indicates the embedding dimension does not match
	// the index schema. Fatal for the ingestion run.
	ErrSchemaMismatch = errors.New("index schema mismatch")

	// ErrRetrievalUnavailable indicates the search service could not be
	// reached after exhausting retries. The generation chain degrades
	// to an insufficient-information answer.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationUnavailable indicates the LLM endpoint could not be
	// reached after exhausting retries.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// Retryable reports whether the error warrants another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
