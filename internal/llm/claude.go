package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
)

// ClaudeProvider generates content using the Anthropic Claude API.
type ClaudeProvider struct {
	client anthropic.Client
	config *common.ClaudeConfig
	model  string
	logger arbor.ILogger
	retry  *RetryConfig
}

// NewClaudeProvider creates a Claude provider for the given model. An empty
// model falls back to the configured default.
func NewClaudeProvider(config *common.ClaudeConfig, model string, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is not configured")
	}
	if model == "" {
		model = config.Model
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	return &ClaudeProvider{
		client: client,
		config: config,
		model:  model,
		logger: logger,
		retry:  NewDefaultRetryConfig(),
	}, nil
}

// GetProviderType returns the provider type
func (p *ClaudeProvider) GetProviderType() ProviderType {
	return ProviderClaude
}

// Model returns the model this provider calls.
func (p *ClaudeProvider) Model() string {
	return p.model
}

// Close releases the provider.
func (p *ClaudeProvider) Close() error {
	p.client = anthropic.Client{}
	return nil
}

// GenerateContent calls the Claude API with retry on transient failures.
func (p *ClaudeProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = p.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemInstruction},
		}
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		resp, apiErr = p.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == p.retry.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = p.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		}

		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("Claude API call failed after %d retries: %w", p.retry.MaxRetries, apiErr)
	}

	var text strings.Builder
	var reasoning strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		}
	}

	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)

	return &ContentResponse{
		Text:       text.String(),
		Reasoning:  reasoning.String(),
		Provider:   ProviderClaude,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}
