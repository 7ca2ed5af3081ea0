package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "https://api.binance.com", config.Market.BaseURL)
	assert.Equal(t, "1d", config.Market.CandleInterval)
	assert.Equal(t, 60, config.Market.CandleLimit)
	assert.Equal(t, "gemini", config.LLM.DefaultProvider)
	require.NotEmpty(t, config.LLM.Providers)
	assert.Equal(t, "gemini-2.5-flash", config.LLM.Providers[0].Model)
	assert.Equal(t, 6*time.Hour, config.Cache.DegradedTTLDuration())
	assert.Contains(t, config.Analysis.Symbols, "BTCUSDT")
	require.NoError(t, config.Validate())
}

func TestLoadFromFiles_TOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mercatus.toml")
	content := `
environment = "production"

[market]
candle_limit = 120

[cache]
degraded_ttl = "2h"

[[llm.providers]]
model = "claude-haiku-3-5-20241022"
timeout = "60s"
max_tokens = 2048
temperature = 0.5

[analysis]
symbols = ["BTCUSDT"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 120, config.Market.CandleLimit)
	assert.Equal(t, 2*time.Hour, config.Cache.DegradedTTLDuration())
	assert.Equal(t, []string{"BTCUSDT"}, config.Analysis.Symbols)
	// TOML array tables replace the default provider chain
	require.Len(t, config.LLM.Providers, 1)
	assert.Equal(t, "claude-haiku-3-5-20241022", config.LLM.Providers[0].Model)
	assert.Equal(t, 60*time.Second, config.LLM.Providers[0].TimeoutDuration(90*time.Second))
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("MERCATUS_ENV", "production")
	t.Setenv("MERCATUS_LOG_LEVEL", "debug")
	t.Setenv("MERCATUS_SYMBOLS", "btcusdt, ethusdt")
	t.Setenv("GEMINI_API_KEY", "test-key")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, config.Analysis.Symbols)
	assert.Equal(t, "test-key", config.Gemini.APIKey)
}

func TestLoadFromFiles_MissingFileFails(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/mercatus.toml")
	assert.Error(t, err)
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	config := NewDefaultConfig()
	config.Logging.Level = "verbose"
	assert.Error(t, config.Validate())
}

func TestValidate_RequiresProviders(t *testing.T) {
	config := NewDefaultConfig()
	config.LLM.Providers = nil
	assert.Error(t, config.Validate())
}

func TestDurationHelpers(t *testing.T) {
	m := MarketConfig{RequestTimeout: "bogus"}
	assert.Equal(t, 30*time.Second, m.RequestTimeoutDuration())

	l := LLMConfig{DefaultTimeout: "2m"}
	assert.Equal(t, 2*time.Minute, l.DefaultTimeoutDuration())

	c := CacheConfig{DegradedTTL: ""}
	assert.Equal(t, time.Duration(0), c.DegradedTTLDuration())
}
