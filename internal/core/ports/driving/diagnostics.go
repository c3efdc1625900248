package driving

import "context"

// CheckResult is the outcome of one connectivity check.
type CheckResult struct {
	// Name identifies the check, e.g. "embedding endpoint".
	Name string

	// Passed is true when the check succeeded.
	Passed bool

	// Detail explains the outcome.
	Detail string
}

// Diagnostics runs the connectivity self-test: configuration,
// embedding endpoint, search service and chat deployment.
type Diagnostics interface {
	// Check runs all checks and returns one result per check.
	Check(ctx context.Context) []CheckResult
}
