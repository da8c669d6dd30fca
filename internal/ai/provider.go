package ai

import (
	"context"
	"errors"
	"fmt"
)

// Error codes surfaced to the API layer for upstream AI failures. A
// malformed response is a hard failure of that call; it never silently
// defaults to a SAFE verdict.
const (
	CodeAPIError           = "GEMINI_API_ERROR"
	CodeParseError         = "PARSE_ERROR"
	CodeInvalidFormat      = "INVALID_RESPONSE_FORMAT"
	CodeInvalidStatusValue = "INVALID_STATUS_VALUE"
)

// ProviderError wraps an AI-path failure with its API error code and, for
// rate limits, the upstream retry hint in seconds.
type ProviderError struct {
	Code       string
	RetryAfter int
	RateLimit  bool
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError normalizes any AI-path error into a ProviderError,
// wrapping unclassified errors under the generic API error code.
func AsProviderError(err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return &ProviderError{Code: CodeAPIError, Err: err}
}

// Provider is the boundary to a generative vision model. It receives the
// prepared prompt plus image bytes and returns the raw model text.
type Provider interface {
	AnalyzeImage(ctx context.Context, prompt string, imageBytes []byte, mimeFormat string) (string, error)
	Name() string
}
