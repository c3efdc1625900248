package azure

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// mapAPIError translates service responses into domain errors so the
// shared retry policy can classify them. 429 and 5xx are retryable;
// everything else surfaces as-is.
func mapAPIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrRateLimited, apiErr.Message)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrTransient, apiErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", op, domain.ErrRateLimited)
		case reqErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w", op, domain.ErrTransient)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
