// Package llm wraps the OpenAI chat completions API behind a small
// prompt-in, text-out client used by the chat orchestrator and the session
// summarizer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the chat model used when OPENAI_MODEL is unset.
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature matches the upstream assistant configuration.
	DefaultTemperature = 0.5

	// requestTimeout bounds a single completion call. Generation with a
	// large retrieved context can legitimately take a while.
	requestTimeout = 120 * time.Second
)

// Client calls the chat completions API with retry on rate limits. It
// satisfies session.Summarizer.
type Client struct {
	client      *openai.Client
	model       string
	temperature float64
}

// NewClient wraps an existing OpenAI client. Model and temperature fall back
// to the defaults when zero-valued; the client is shared with the embedder
// so the process holds a single API connection pool.
func NewClient(client *openai.Client, model string, temperature float64) *Client {
	if model == "" {
		model = DefaultModel
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

// Model returns the configured chat model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single-message prompt and returns the assistant's text.
// Rate limit errors are retried with exponential backoff; any other error is
// returned immediately.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var text string

	operation := func() error {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model:       c.model,
			Temperature: openai.Float(c.temperature),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("chat completion returned no choices"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 10 * time.Second
	expBackoff.MaxElapsedTime = 60 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	return text, nil
}

// isRateLimitError checks for an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
