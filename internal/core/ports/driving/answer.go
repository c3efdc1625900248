package driving

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// AnswerService is the query interface: one question in, one answer out.
// Retrieval completes before generation begins; concurrent questions are
// independent. Failures in the query path come back as a failed Answer,
// never as a panic or process exit.
type AnswerService interface {
	// Ask answers the question from indexed documents.
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}
