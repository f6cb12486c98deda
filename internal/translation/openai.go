package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// APIError is a failed translation request.
type APIError struct {
	Message   string
	Cause     error
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("translation: %s: %v", e.Message, e.Cause)
	}
	return "translation: " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is an APIError marked retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// Client translates batches of strings with an OpenAI compatible chat API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	prompts     *PromptBuilder
}

// Config configures the Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Context string
}

// NewClient creates a translation client.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		temperature: 0.3,
		prompts:     NewPromptBuilder(cfg.Context),
	}
}

// Translate returns the texts translated from source to target, in order.
func (c *Client) Translate(ctx context.Context, source, target string, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompts.SystemPrompt(source, target)},
			{Role: openai.ChatMessageRoleUser, Content: c.prompts.UserPrompt(texts)},
		},
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &APIError{Message: "chat completion", Cause: err, Retryable: retryable(err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &APIError{Message: "empty response: no choices", Retryable: true}
	}

	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("output_tokens", resp.Usage.CompletionTokens).
		Msg("Translation complete")

	return ParseResponse(resp.Choices[0].Message.Content, len(texts))
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
