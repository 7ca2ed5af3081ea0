package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
)

// OpenAIProvider generates content using an OpenAI-compatible chat
// completions API. This covers OpenAI itself and aggregators such as
// OpenRouter that expose the same wire format.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     arbor.ILogger
	retry      *RetryConfig
}

// NewOpenAIProvider creates a chat-completions provider for the given model.
func NewOpenAIProvider(config *common.OpenAIConfig, model string, logger arbor.ILogger) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is not configured")
	}
	if model == "" {
		return nil, fmt.Errorf("openai provider requires an explicit model")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		retry:      NewDefaultRetryConfig(),
	}, nil
}

// GetProviderType returns the provider type
func (p *OpenAIProvider) GetProviderType() ProviderType {
	return ProviderOpenAI
}

// Model returns the model this provider calls.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Close releases the provider.
func (p *OpenAIProvider) Close() error {
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatCompletionResponse is the subset of the chat completions payload the
// pipeline reads. Reasoning-capable models may return their output in the
// reasoning field with an empty content.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent calls the chat completions endpoint with retry.
func (p *OpenAIProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	messages := []chatMessage{}
	if request.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: request.SystemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: request.Prompt})

	payload := chatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: request.MaxTokens,
	}
	if request.Temperature > 0 {
		payload.Temperature = &request.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var parsed *chatCompletionResponse
	var apiErr error

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		parsed, apiErr = p.doRequest(ctx, body)
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
			Msg("Retrying chat completions call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("chat completions call failed after %d retries: %w", p.retry.MaxRetries, apiErr)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty response from chat completions API")
	}

	choice := parsed.Choices[0]
	return &ContentResponse{
		Text:       choice.Message.Content,
		Reasoning:  choice.Message.Reasoning,
		Provider:   ProviderOpenAI,
		Model:      model,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

func (p *OpenAIProvider) doRequest(ctx context.Context, body []byte) (*chatCompletionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completions API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat completions API error: %s", parsed.Error.Message)
	}

	return &parsed, nil
}
