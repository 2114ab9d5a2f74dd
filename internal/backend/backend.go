// Package backend normalizes every registered provider kind to a single
// call contract: a system prompt and a user prompt in, {text, tokens,
// model, finishReason} out, with a typed error distinguishing rate
// limits from other faults.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/agentforge/orchestrator/pkg/models"
)

// CallTimeout is the hard wall-clock limit on a single adapter call.
// It aborts whichever adapter is in flight, streaming or buffered.
const CallTimeout = 5 * time.Minute

// CallResult is the normalized shape every provider-kind adapter returns.
type CallResult struct {
	Text         string
	Tokens       int64
	Model        string
	FinishReason string
}

// Adapter speaks one provider kind's wire shape.
type Adapter interface {
	Call(ctx context.Context, cfg models.AgentConfig, credential, systemPrompt, userPrompt string) (CallResult, error)
}

// Call dispatches to the adapter for cfg.Provider and enforces timeout. A
// timeout of zero falls back to CallTimeout.
func Call(ctx context.Context, cfg models.AgentConfig, credential, systemPrompt, userPrompt string, timeout time.Duration) (CallResult, error) {
	adapter, err := adapterFor(cfg)
	if err != nil {
		return CallResult{}, err
	}
	if timeout <= 0 {
		timeout = CallTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return adapter.Call(ctx, cfg, credential, systemPrompt, userPrompt)
}

func adapterFor(cfg models.AgentConfig) (Adapter, error) {
	switch cfg.Provider {
	case models.ProviderAnthropic:
		return anthropicAdapter{}, nil
	case models.ProviderGemini:
		return geminiAdapter{}, nil
	case models.ProviderOpenAICompatible:
		if cfg.StreamingRequired {
			return openaiStreamingAdapter{}, nil
		}
		return openaiBufferedAdapter{}, nil
	default:
		return nil, &models.KindedError{
			Kind: models.ErrKindOutOfScope,
			Err:  fmt.Errorf("provider %q has no in-core backend adapter", cfg.Provider),
		}
	}
}

// estimateTokens is the fallback token count when a provider's response
// doesn't carry a usage block.
func estimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	return int64((len(text) + 3) / 4)
}
