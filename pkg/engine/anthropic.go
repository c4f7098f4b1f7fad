package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
)

// CompletionClient is the minimal surface of the text-completion service the
// engine depends on. Both external calls a question can trigger (parse-time
// and summarize-time) go through it.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnthropicClient implements CompletionClient against the Anthropic API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	log       *slog.Logger
}

// NewAnthropicClient builds a completion client. The API key must be
// non-empty; callers that have no credential configured should not construct
// a client at all and leave the generative stages unwired.
func NewAnthropicClient(apiKey string, model anthropic.Model, maxTokens int64, log *slog.Logger) *AnthropicClient {
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		log:       log,
	}
}

// Complete sends a prompt and returns the response text. Transport failures
// are retried once; anything still failing after that is returned as-is for
// the caller to degrade on.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	attempt := 0
	msg, err := backoff.Retry(ctx, func() (*anthropic.Message, error) {
		attempt++
		if attempt > 1 && c.log != nil {
			c.log.Warn("completion call failed, retrying", "attempt", attempt)
		}
		return c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System: []anthropic.TextBlockParam{
				{Type: "text", Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(2))

	duration := time.Since(start)
	completionDuration.Observe(duration.Seconds())

	if err != nil {
		if c.log != nil {
			c.log.Error("completion call failed", "duration", duration, "error", err)
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if c.log != nil {
		c.log.Debug("completion call completed", "duration", duration, "stopReason", msg.StopReason)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
