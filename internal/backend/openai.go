package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentforge/orchestrator/pkg/models"
)

// openaiBufferedAdapter issues a single chat completion and reads the
// whole response from choices[0].message.content.
type openaiBufferedAdapter struct{}

func (openaiBufferedAdapter) Call(ctx context.Context, cfg models.AgentConfig, credential, systemPrompt, userPrompt string) (CallResult, error) {
	client := openai.NewClient(clientOptions(cfg, credential)...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params, extraBodyOptions(cfg)...)
	if err != nil {
		return CallResult{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindBadOutput, Err: errors.New("chat completion returned no choices")}
	}

	text := resp.Choices[0].Message.Content
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = estimateTokens(text)
	}

	return CallResult{
		Text:         text,
		Tokens:       tokens,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// openaiStreamingAdapter speaks server-sent events against hosts (an
// NVIDIA NIM deployment, typically) that hang on a non-streaming
// completion. It concatenates delta content across chunks.
type openaiStreamingAdapter struct{}

func (openaiStreamingAdapter) Call(ctx context.Context, cfg models.AgentConfig, credential, systemPrompt, userPrompt string) (CallResult, error) {
	client := openai.NewClient(clientOptions(cfg, credential)...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params, extraBodyOptions(cfg)...)
	defer stream.Close()

	var text []byte
	var model, finishReason string
	var tokens int64

	for stream.Next() {
		chunk := stream.Current()
		if chunk.Model != "" {
			model = chunk.Model
		}
		if len(chunk.Choices) > 0 {
			text = append(text, chunk.Choices[0].Delta.Content...)
			if fr := string(chunk.Choices[0].FinishReason); fr != "" {
				finishReason = fr
			}
		}
		if chunk.Usage.TotalTokens > 0 {
			tokens = chunk.Usage.TotalTokens
		}
	}
	if err := stream.Err(); err != nil {
		return CallResult{}, classifyOpenAIError(err)
	}

	if tokens == 0 {
		tokens = estimateTokens(string(text))
	}

	return CallResult{Text: string(text), Tokens: tokens, Model: model, FinishReason: finishReason}, nil
}

func clientOptions(cfg models.AgentConfig, credential string) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(credential)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return opts
}

// extraBodyOptions passes an agent's chat_template_kwargs through to the
// wire request body, unmodified and nested under that one field, per
// request rather than per client, since only some agents on a shared
// provider kind need them.
func extraBodyOptions(cfg models.AgentConfig) []option.RequestOption {
	if len(cfg.ChatTemplateKwargs) == 0 {
		return nil
	}
	return []option.RequestOption{option.WithJSONSet("chat_template_kwargs", cfg.ChatTemplateKwargs)}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
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
