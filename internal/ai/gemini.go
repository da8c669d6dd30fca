package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider calls Google Gemini vision models.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// AnalyzeImage sends prompt + image to Gemini and returns the concatenated
// text parts of the first candidate.
func (p *GeminiProvider) AnalyzeImage(ctx context.Context, prompt string, imageBytes []byte, mimeFormat string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", &ProviderError{Code: CodeAPIError, Err: fmt.Errorf("failed to create gemini client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData(mimeFormat, imageBytes),
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ProviderError{Code: CodeInvalidFormat, Err: errors.New("gemini returned no candidates")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", &ProviderError{Code: CodeInvalidFormat, Err: errors.New("gemini candidate had no text parts")}
	}
	return sb.String(), nil
}

// classifyGeminiError maps transport errors onto the API error taxonomy.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Code: CodeAPIError, Timeout: true, Err: err}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 429 {
		return &ProviderError{Code: CodeAPIError, RateLimit: true, RetryAfter: 30, Err: err}
	}
	return &ProviderError{Code: CodeAPIError, Err: fmt.Errorf("gemini generate failed: %w", err)}
}
