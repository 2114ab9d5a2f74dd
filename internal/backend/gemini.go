package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentforge/orchestrator/pkg/models"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// geminiAdapter speaks Google's dedicated generateContent shape, the
// other thinking-model protocol variant. No Gemini client library
// appears anywhere in the retrieval pack, so this talks the documented
// REST shape directly with net/http rather than inventing a dependency.
type geminiAdapter struct{}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (geminiAdapter) Call(ctx context.Context, cfg models.AgentConfig, credential, systemPrompt, userPrompt string) (CallResult, error) {
	base := cfg.Endpoint
	if base == "" {
		base = defaultGeminiEndpoint
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimSuffix(base, "/"), url.PathEscape(cfg.Model), url.QueryEscape(credential))

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
	}
	if systemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	if cfg.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: cfg.MaxTokens}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindTransport, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return CallResult{}, &models.KindedError{
			Kind:       models.ErrKindRateLimited,
			Err:        fmt.Errorf("gemini generateContent: %s", strings.TrimSpace(string(raw))),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode >= 300 {
		return CallResult{}, &models.KindedError{
			Kind: models.ErrKindTransport,
			Err:  fmt.Errorf("gemini generateContent: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindBadOutput, Err: err}
	}
	if parsed.Error != nil {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindTransport, Err: fmt.Errorf("gemini generateContent: %s", parsed.Error.Message)}
	}
	if len(parsed.Candidates) == 0 {
		return CallResult{}, &models.KindedError{Kind: models.ErrKindBadOutput, Err: fmt.Errorf("gemini generateContent: no candidates")}
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	tokens := parsed.UsageMetadata.TotalTokenCount
	if tokens == 0 {
		tokens = estimateTokens(text.String())
	}

	return CallResult{
		Text:         text.String(),
		Tokens:       tokens,
		Model:        cfg.Model,
		FinishReason: parsed.Candidates[0].FinishReason,
	}, nil
}
