package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls OpenAI-compatible vision chat models.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI provider. baseURL overrides the
// endpoint for proxies and compatible deployments.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// AnalyzeImage sends prompt + image as a multi-part vision chat message.
func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, prompt string, imageBytes []byte, mimeFormat string) (string, error) {
	dataURI := fmt.Sprintf("data:image/%s;base64,%s", mimeFormat, base64.StdEncoding.EncodeToString(imageBytes))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
					},
				},
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &ProviderError{Code: CodeAPIError, Timeout: true, Err: err}
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return "", &ProviderError{Code: CodeAPIError, RateLimit: true, RetryAfter: 30, Err: err}
		}
		return "", &ProviderError{Code: CodeAPIError, Err: fmt.Errorf("openai chat failed: %w", err)}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ProviderError{Code: CodeInvalidFormat, Err: errors.New("openai returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
