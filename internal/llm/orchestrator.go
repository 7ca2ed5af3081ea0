package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/extractor"
	"github.com/ternarybob/mercatus/internal/models"
)

// Outcome is the result of running the provider fallback chain once.
type Outcome struct {
	Analysis   *models.LLMAnalysis
	Model      string
	TokensUsed int
	Degraded   bool
	Attempts   int
}

// Orchestrator runs an ordered provider chain until one response is
// accepted. A response is accepted only when the transport call succeeds,
// the body is non-empty, and the extractor recovers a valid payload; any
// other outcome moves to the next provider. When the chain is exhausted the
// orchestrator returns a degraded outcome instead of an error, so a total
// provider outage still yields a usable result.
type Orchestrator struct {
	chain          []ChainEntry
	extractor      *extractor.Extractor
	defaultTimeout time.Duration
	logger         arbor.ILogger
}

// NewOrchestrator creates an orchestrator over the given chain.
func NewOrchestrator(chain []ChainEntry, ext *extractor.Extractor, defaultTimeout time.Duration, logger arbor.ILogger) *Orchestrator {
	if defaultTimeout <= 0 {
		defaultTimeout = 90 * time.Second
	}
	return &Orchestrator{
		chain:          chain,
		extractor:      ext,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Analyze runs the chain for one prompt. The only error returned is a
// cancelled or expired parent context; all provider failures degrade.
func (o *Orchestrator) Analyze(ctx context.Context, prompt, systemInstruction string) (*Outcome, error) {
	attempts := 0

	for _, entry := range o.chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++

		outcome, ok := o.tryProvider(ctx, entry, prompt, systemInstruction)
		if ok {
			outcome.Attempts = attempts
			return outcome, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	o.logger.Error().
		Int("attempts", attempts).
		Msg("All providers failed, falling back to rule-based analysis")

	return &Outcome{
		Analysis: DefaultAnalysis(),
		Model:    DefaultModelMarker,
		Degraded: true,
		Attempts: attempts,
	}, nil
}

func (o *Orchestrator) tryProvider(ctx context.Context, entry ChainEntry, prompt, systemInstruction string) (*Outcome, bool) {
	model := entry.Provider.Model()

	callCtx, cancel := context.WithTimeout(ctx, entry.Config.TimeoutDuration(o.defaultTimeout))
	defer cancel()

	resp, err := entry.Provider.GenerateContent(callCtx, &ContentRequest{
		Prompt:            prompt,
		Model:             model,
		Temperature:       entry.Config.Temperature,
		MaxTokens:         entry.Config.MaxTokens,
		SystemInstruction: systemInstruction,
	})
	if err != nil {
		o.logger.Warn().
			Str("model", model).
			Err(err).
			Msg("Provider call failed, trying next")
		return nil, false
	}

	body := resp.Body()
	if strings.TrimSpace(body) == "" {
		o.logger.Warn().
			Str("model", model).
			Msg("Provider returned empty body, trying next")
		return nil, false
	}

	analysis, err := o.extractor.Extract(body)
	if err != nil {
		o.logger.Warn().
			Str("model", model).
			Err(err).
			Msg("Response extraction failed, trying next")
		return nil, false
	}

	o.logger.Info().
		Str("model", resp.Model).
		Str("provider", string(resp.Provider)).
		Int("tokens", resp.TokensUsed).
		Msg("Analysis accepted")

	return &Outcome{
		Analysis:   analysis,
		Model:      resp.Model,
		TokensUsed: resp.TokensUsed,
	}, true
}
