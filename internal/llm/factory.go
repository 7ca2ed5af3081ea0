package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
)

// ChainEntry pairs a constructed provider with its per-call settings.
type ChainEntry struct {
	Provider Provider
	Config   common.ProviderConfig
}

// BuildChain constructs the ordered provider chain from configuration.
// Entries whose provider cannot be constructed (usually a missing API key)
// are skipped with a warning so one unconfigured provider does not take
// down the whole chain. An empty chain is an error.
func BuildChain(ctx context.Context, config *common.Config, logger arbor.ILogger) ([]ChainEntry, error) {
	chain := make([]ChainEntry, 0, len(config.LLM.Providers))

	for _, pc := range config.LLM.Providers {
		providerType := DetectProvider(pc.Model, ProviderType(config.LLM.DefaultProvider))
		model := NormalizeModel(pc.Model)

		var provider Provider
		var err error
		switch providerType {
		case ProviderClaude:
			provider, err = NewClaudeProvider(&config.Claude, model, logger)
		case ProviderGemini:
			provider, err = NewGeminiProvider(ctx, &config.Gemini, model, logger)
		case ProviderOpenAI:
			provider, err = NewOpenAIProvider(&config.OpenAI, model, logger)
		default:
			err = fmt.Errorf("unknown provider type %q", providerType)
		}

		if err != nil {
			logger.Warn().
				Str("model", pc.Model).
				Str("provider", string(providerType)).
				Err(err).
				Msg("Skipping unavailable provider")
			continue
		}

		chain = append(chain, ChainEntry{Provider: provider, Config: pc})
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("no usable llm providers configured")
	}

	return chain, nil
}

// CloseChain closes every provider in the chain.
func CloseChain(chain []ChainEntry) {
	for _, entry := range chain {
		entry.Provider.Close()
	}
}
