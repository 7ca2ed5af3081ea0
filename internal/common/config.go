package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Market      MarketConfig   `toml:"market"`
	LLM         LLMConfig      `toml:"llm"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	OpenAI      OpenAIConfig   `toml:"openai"`
	Cache       CacheConfig    `toml:"cache"`
	Analysis    AnalysisConfig `toml:"analysis"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Format string   `toml:"format"`                                      // "json" or "text"
	Output []string `toml:"output"`                                      // "stdout", "file"
}

// MarketConfig contains market data source configuration
type MarketConfig struct {
	BaseURL        string `toml:"base_url"`        // REST API base URL
	StreamURL      string `toml:"stream_url"`      // Websocket stream base URL
	CandleInterval string `toml:"candle_interval"` // Kline interval (default: "1d")
	CandleLimit    int    `toml:"candle_limit" validate:"min=1"`
	RateLimit      int    `toml:"rate_limit"`      // Requests per second
	RequestTimeout string `toml:"request_timeout"` // Duration string (default: "30s")
}

// ProviderConfig is one entry in the ordered LLM fallback chain.
// Providers are tried in configuration order; the first accepted response wins.
type ProviderConfig struct {
	Model       string  `toml:"model" validate:"required"`
	Timeout     string  `toml:"timeout"` // Per-call timeout; reasoning-heavy models get a longer budget
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// TimeoutDuration parses the per-call timeout, falling back to def.
func (p ProviderConfig) TimeoutDuration(def time.Duration) time.Duration {
	if d, err := time.ParseDuration(p.Timeout); err == nil && d > 0 {
		return d
	}
	return def
}

// LLMConfig contains the provider fallback chain and shared defaults
type LLMConfig struct {
	DefaultProvider string           `toml:"default_provider"` // "gemini", "claude", or "openai"
	DefaultTimeout  string           `toml:"default_timeout"`  // Fallback per-call timeout (default: "90s")
	Providers       []ProviderConfig `toml:"providers" validate:"dive"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// OpenAIConfig contains configuration for OpenAI-compatible chat endpoints
// (OpenRouter and similar gateways use the same wire shape).
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// CacheConfig controls analysis result freshness policy
type CacheConfig struct {
	// DegradedTTL is how long a rule-based fallback result is served before a
	// recompute is allowed. Empty or "0" treats degraded results like genuine
	// LLM results (fresh for the calendar day).
	DegradedTTL string `toml:"degraded_ttl"`
}

// DegradedTTLDuration parses the degraded freshness window; zero disables it.
func (c CacheConfig) DegradedTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.DegradedTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AnalysisConfig contains the scheduled analysis targets
type AnalysisConfig struct {
	Symbols  []string `toml:"symbols"`  // Symbols analyzed on each scheduled run
	Schedule string   `toml:"schedule"` // Cron schedule format
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in mercatus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Market: MarketConfig{
			BaseURL:        "https://api.binance.com",
			StreamURL:      "wss://stream.binance.com:9443/ws",
			CandleInterval: "1d",
			CandleLimit:    60, // Covers the 50-period moving average lookback
			RateLimit:      10,
			RequestTimeout: "30s",
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			DefaultTimeout:  "90s",
			Providers: []ProviderConfig{
				{Model: "gemini-2.5-flash", Timeout: "90s", MaxTokens: 4096, Temperature: 0.7},
				{Model: "claude-haiku-3-5-20241022", Timeout: "90s", MaxTokens: 4096, Temperature: 0.7},
			},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Cache: CacheConfig{
			DegradedTTL: "6h",
		},
		Analysis: AnalysisConfig{
			Symbols:  []string{"BTCUSDT", "ETHUSDT", "XRPUSDT", "SOLUSDT"},
			Schedule: "0 10 0 * * *", // 00:10 UTC daily, just after the cache date rolls over
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("invalid configuration: at least one llm provider is required")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MERCATUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if badgerPath := os.Getenv("MERCATUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("MERCATUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MERCATUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Market data configuration
	if baseURL := os.Getenv("MERCATUS_MARKET_BASE_URL"); baseURL != "" {
		config.Market.BaseURL = baseURL
	}
	if streamURL := os.Getenv("MERCATUS_MARKET_STREAM_URL"); streamURL != "" {
		config.Market.StreamURL = streamURL
	}
	if limit := os.Getenv("MERCATUS_MARKET_CANDLE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Market.CandleLimit = n
		}
	}

	// API keys
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}

	// Analysis schedule
	if symbols := os.Getenv("MERCATUS_SYMBOLS"); symbols != "" {
		parsed := []string{}
		for _, s := range strings.Split(symbols, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				parsed = append(parsed, strings.ToUpper(trimmed))
			}
		}
		if len(parsed) > 0 {
			config.Analysis.Symbols = parsed
		}
	}
	if schedule := os.Getenv("MERCATUS_SCHEDULE"); schedule != "" {
		config.Analysis.Schedule = schedule
	}
}

// RequestTimeoutDuration parses the market request timeout, defaulting to 30s.
func (m MarketConfig) RequestTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(m.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// DefaultTimeoutDuration parses the shared per-call LLM timeout, defaulting to 90s.
func (l LLMConfig) DefaultTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(l.DefaultTimeout); err == nil && d > 0 {
		return d
	}
	return 90 * time.Second
}
