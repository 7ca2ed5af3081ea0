package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/extractor"
	"github.com/ternarybob/mercatus/internal/models"
)

const goodResponse = `{
	"trend": {"direction": "bullish", "confidence": 70, "summary": "ok"},
	"technicalAnalysis": {
		"rsi": {"signal": "HOLD", "interpretation": "n/a"},
		"macd": {"signal": "BUY", "interpretation": "n/a"},
		"movingAverage": {"signal": "BUY", "interpretation": "n/a"},
		"bollingerBands": {"signal": "HOLD", "interpretation": "n/a"},
		"williamsR": {"signal": "HOLD", "interpretation": "n/a"},
		"volume": {"signal": "WATCH", "interpretation": "n/a"}
	},
	"marketSentiment": {"score": 60, "label": "positive", "summary": "ok"}
}`

type stubProvider struct {
	model string
	text  string
	// reasoning simulates models that answer in the reasoning field
	reasoning string
	err       error
	calls     int
}

func (s *stubProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ContentResponse{
		Text:       s.text,
		Reasoning:  s.reasoning,
		Provider:   ProviderOpenAI,
		Model:      s.model,
		TokensUsed: 100,
	}, nil
}

func (s *stubProvider) GetProviderType() ProviderType { return ProviderOpenAI }
func (s *stubProvider) Model() string                 { return s.model }
func (s *stubProvider) Close() error                  { return nil }

func newTestOrchestrator(providers ...*stubProvider) *Orchestrator {
	chain := make([]ChainEntry, len(providers))
	for i, p := range providers {
		chain[i] = ChainEntry{
			Provider: p,
			Config:   common.ProviderConfig{Model: p.model, Timeout: "5s"},
		}
	}
	return NewOrchestrator(chain, extractor.New(), 5*time.Second, arbor.NewLogger())
}

func TestAnalyze_FirstProviderWins(t *testing.T) {
	first := &stubProvider{model: "model-a", text: goodResponse}
	second := &stubProvider{model: "model-b", text: goodResponse}

	outcome, err := newTestOrchestrator(first, second).Analyze(context.Background(), "prompt", "system")
	require.NoError(t, err)

	assert.Equal(t, "model-a", outcome.Model)
	assert.Equal(t, 1, outcome.Attempts)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, 100, outcome.TokensUsed)
	assert.Equal(t, 0, second.calls, "later providers must not be called after an accepted response")
}

func TestAnalyze_FallsThroughToThird(t *testing.T) {
	first := &stubProvider{model: "model-a", err: errors.New("connection refused")}
	second := &stubProvider{model: "model-b", text: "I cannot help with that."}
	third := &stubProvider{model: "model-c", text: goodResponse}

	outcome, err := newTestOrchestrator(first, second, third).Analyze(context.Background(), "prompt", "system")
	require.NoError(t, err)

	assert.Equal(t, "model-c", outcome.Model)
	assert.Equal(t, 3, outcome.Attempts)
	assert.False(t, outcome.Degraded)
}

func TestAnalyze_EmptyBodyMovesOn(t *testing.T) {
	first := &stubProvider{model: "model-a", text: "   "}
	second := &stubProvider{model: "model-b", text: goodResponse}

	outcome, err := newTestOrchestrator(first, second).Analyze(context.Background(), "prompt", "system")
	require.NoError(t, err)
	assert.Equal(t, "model-b", outcome.Model)
}

func TestAnalyze_ReasoningOnlyResponseAccepted(t *testing.T) {
	p := &stubProvider{model: "model-a", reasoning: goodResponse}

	outcome, err := newTestOrchestrator(p).Analyze(context.Background(), "prompt", "system")
	require.NoError(t, err)

	assert.Equal(t, "model-a", outcome.Model)
	assert.Equal(t, models.TrendBullish, outcome.Analysis.Trend.Direction)
}

func TestAnalyze_ExhaustedChainDegrades(t *testing.T) {
	first := &stubProvider{model: "model-a", err: errors.New("timeout")}
	second := &stubProvider{model: "model-b", err: errors.New("429 rate limit")}

	outcome, err := newTestOrchestrator(first, second).Analyze(context.Background(), "prompt", "system")
	require.NoError(t, err, "exhaustion degrades rather than errors")

	assert.True(t, outcome.Degraded)
	assert.Equal(t, DefaultModelMarker, outcome.Model)
	assert.Equal(t, 2, outcome.Attempts)
	require.NotNil(t, outcome.Analysis)
	assert.Equal(t, models.TrendNeutral, outcome.Analysis.Trend.Direction)
	assert.Equal(t, 50, outcome.Analysis.Trend.Confidence)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &stubProvider{model: "model-a", text: goodResponse}
	_, err := newTestOrchestrator(p).Analyze(ctx, "prompt", "system")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.calls)
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  ProviderType
	}{
		{"claude-haiku-3-5-20241022", ProviderClaude},
		{"anthropic/claude-haiku-3-5-20241022", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-flash", ProviderGemini},
		{"gpt-4o-mini", ProviderOpenAI},
		{"openrouter/deepseek-chat", ProviderOpenAI},
		{"", ProviderGemini},
		{"unknown-model", ProviderGemini},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProvider(tt.model, ProviderGemini))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "claude-haiku-3-5-20241022", NormalizeModel("claude/claude-haiku-3-5-20241022"))
	assert.Equal(t, "gemini-2.5-flash", NormalizeModel("gemini-2.5-flash"))
}

func TestRetry_ExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("plain failure")))
}

func TestRetry_CalculateBackoffCapped(t *testing.T) {
	cfg := NewDefaultRetryConfig()
	assert.Equal(t, cfg.InitialBackoff, cfg.CalculateBackoff(0, 0))
	assert.LessOrEqual(t, cfg.CalculateBackoff(10, 0), cfg.MaxBackoff)

	withAPIDelay := cfg.CalculateBackoff(0, 30*time.Second)
	assert.Equal(t, 35*time.Second, withAPIDelay)
}
