package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
	"google.golang.org/genai"
)

// GeminiProvider generates content using the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
	config *common.GeminiConfig
	model  string
	logger arbor.ILogger
	retry  *RetryConfig
}

// NewGeminiProvider creates a Gemini provider for the given model. An empty
// model falls back to the configured default.
func NewGeminiProvider(ctx context.Context, config *common.GeminiConfig, model string, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}
	if model == "" {
		model = config.Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
		model:  model,
		logger: logger,
		retry:  NewDefaultRetryConfig(),
	}, nil
}

// GetProviderType returns the provider type
func (p *GeminiProvider) GetProviderType() ProviderType {
	return ProviderGemini
}

// Model returns the model this provider calls.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Close releases the provider.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}

// generateConfig maps the request onto the Gemini call configuration.
// Temperature falls back to the configured default; a zero MaxTokens leaves
// the model's output limit unset.
func (p *GeminiProvider) generateConfig(request *ContentRequest) *genai.GenerateContentConfig {
	temp := request.Temperature
	if temp <= 0 {
		temp = p.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}

	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}

	return config
}

// GenerateContent calls the Gemini API with rate-limit-aware retry.
func (p *GeminiProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	config := p.generateConfig(request)

	contents := []*genai.Content{
		genai.NewContentFromText(request.Prompt, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		resp, apiErr = p.client.Models.GenerateContent(ctx, model, contents, config)
		if apiErr == nil {
			break
		}

		if attempt == p.retry.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = p.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Gemini API call failed after %d retries: %w", p.retry.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &ContentResponse{
		Text:       resp.Text(),
		Provider:   ProviderGemini,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}
