package backend

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentforge/orchestrator/pkg/models"
)

const defaultAnthropicMaxTokens = 8192

// anthropicAdapter speaks Anthropic's dedicated messages.create shape,
// the thinking-model protocol variant per the backend adapter contract.
type anthropicAdapter struct{}

func (anthropicAdapter) Call(ctx context.Context, cfg models.AgentConfig, credential, systemPrompt, userPrompt string) (CallResult, error) {
	opts := []option.RequestOption{option.WithAPIKey(credential)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return CallResult{}, classifyAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	if tokens == 0 {
		tokens = estimateTokens(text.String())
	}

	return CallResult{
		Text:         text.String(),
		Tokens:       tokens,
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
	}, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return &models.KindedError{
				Kind:       models.ErrKindRateLimited,
				Err:        err,
				RetryAfter: retryAfterSeconds(apiErr.Response),
			}
		}
		return &models.KindedError{Kind: models.ErrKindTransport, Err: err}
	}
	return &models.KindedError{Kind: models.ErrKindTransport, Err: err}
}

// retryAfterSeconds reads the standard Retry-After response header, if
// present, returning 0 when absent or unparsable.
func retryAfterSeconds(resp *http.Response) int64 {
	if resp == nil {
		return 0
	}
	return parseRetryAfter(resp.Header.Get("Retry-After"))
}

func parseRetryAfter(v string) int64 {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return secs
}
