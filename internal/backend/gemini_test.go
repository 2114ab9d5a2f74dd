package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentforge/orchestrator/pkg/models"
)

func TestGeminiAdapter_Call_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "do the thing" {
			t.Fatalf("unexpected request body: %+v", req)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be helpful" {
			t.Fatalf("expected system instruction to be set, got %+v", req.SystemInstruction)
		}

		resp := geminiResponse{}
		resp.Candidates = []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		}{
			{Content: geminiContent{Parts: []geminiPart{{Text: "done"}}}, FinishReason: "STOP"},
		}
		resp.UsageMetadata.TotalTokenCount = 42

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := models.AgentConfig{Provider: models.ProviderGemini, Model: "gemini-test", Endpoint: srv.URL}
	got, err := geminiAdapter{}.Call(context.Background(), cfg, "secret", "be helpful", "do the thing")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got.Text != "done" {
		t.Errorf("Text = %q, want %q", got.Text, "done")
	}
	if got.Tokens != 42 {
		t.Errorf("Tokens = %d, want 42", got.Tokens)
	}
	if got.FinishReason != "STOP" {
		t.Errorf("FinishReason = %q, want STOP", got.FinishReason)
	}
}

func TestGeminiAdapter_Call_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"rate limited"}}`))
	}))
	defer srv.Close()

	cfg := models.AgentConfig{Provider: models.ProviderGemini, Model: "gemini-test", Endpoint: srv.URL}
	_, err := geminiAdapter{}.Call(context.Background(), cfg, "secret", "", "hi")

	var kinded *models.KindedError
	if !errors.As(err, &kinded) {
		t.Fatalf("expected *models.KindedError, got %v (%T)", err, err)
	}
	if kinded.Kind != models.ErrKindRateLimited {
		t.Errorf("Kind = %q, want %q", kinded.Kind, models.ErrKindRateLimited)
	}
	if kinded.RetryAfter != 17 {
		t.Errorf("RetryAfter = %d, want 17", kinded.RetryAfter)
	}
}

func TestGeminiAdapter_Call_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := models.AgentConfig{Provider: models.ProviderGemini, Model: "gemini-test", Endpoint: srv.URL}
	_, err := geminiAdapter{}.Call(context.Background(), cfg, "secret", "", "hi")

	var kinded *models.KindedError
	if !errors.As(err, &kinded) {
		t.Fatalf("expected *models.KindedError, got %v (%T)", err, err)
	}
	if kinded.Kind != models.ErrKindTransport {
		t.Errorf("Kind = %q, want %q", kinded.Kind, models.ErrKindTransport)
	}
}
