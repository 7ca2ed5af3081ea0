// Package llm provides language model providers and the orchestrator that
// runs an ordered fallback chain across them.
package llm

import (
	"context"
	"strings"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderOpenAI uses an OpenAI-compatible chat completions API
	ProviderOpenAI ProviderType = "openai"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Prompt            string
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// ContentResponse represents a provider-agnostic content generation response.
// Reasoning carries any model reasoning text returned alongside (or instead
// of) the main content; some models put their entire answer there.
type ContentResponse struct {
	Text       string
	Reasoning  string
	Provider   ProviderType
	Model      string
	TokensUsed int
}

// Body returns the usable response text: the content when present,
// otherwise the reasoning text.
func (r *ContentResponse) Body() string {
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	return r.Reasoning
}

// Provider defines the interface for AI content generation
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	GetProviderType() ProviderType
	Model() string
	Close() error
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-3-5-20241022" -> Claude
// - "claude/claude-haiku-3-5-20241022" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "gemini/gemini-2.5-flash" -> Gemini (with prefix)
// - anything else -> fallthrough provider
func DetectProvider(model string, fallthroughProvider ProviderType) ProviderType {
	if model == "" {
		return fallthroughProvider
	}

	model = strings.ToLower(model)

	// Check for explicit provider prefix
	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}
	if strings.HasPrefix(model, "openai/") || strings.HasPrefix(model, "openrouter/") {
		return ProviderOpenAI
	}

	// Check for model name patterns
	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1-") || strings.HasPrefix(model, "o3-") {
		return ProviderOpenAI
	}

	return fallthroughProvider
}

// NormalizeModel removes provider prefix from model name if present
func NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/", "openai/", "openrouter/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}
