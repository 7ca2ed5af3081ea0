// Package prompt renders market snapshots and computed indicators into
// deterministic analysis prompts. Identical inputs always produce the same
// prompt text so runs are reproducible and cacheable.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ternarybob/mercatus/internal/models"
)

// responseSchema is the exact JSON shape the model must return. The keys
// mirror the LLMAnalysis wire format.
const responseSchema = `{
  "trend": {
    "direction": "bullish|bearish|neutral",
    "confidence": 0,
    "summary": "one or two sentences"
  },
  "technicalAnalysis": {
    "rsi": {"signal": "BUY|SELL|HOLD|WATCH", "interpretation": "..."},
    "macd": {"signal": "BUY|SELL|HOLD|WATCH", "interpretation": "..."},
    "movingAverage": {"signal": "BUY|SELL|HOLD|WATCH", "interpretation": "..."},
    "bollingerBands": {"signal": "BUY|SELL|HOLD|WATCH", "interpretation": "..."},
    "williamsR": {"signal": "BUY|SELL|HOLD|WATCH", "interpretation": "..."},
    "volume": {"signal": "BUY|SELL|HOLD|WATCH", "interpretation": "..."}
  },
  "marketSentiment": {
    "score": 0,
    "label": "positive|neutral|negative",
    "summary": "one or two sentences"
  }
}`

// SystemInstruction is the system prompt shared by all analysis requests.
const SystemInstruction = "You are a cryptocurrency market analyst. You respond only with valid JSON matching the requested schema. Never include markdown fences, explanations, or any text outside the JSON object. Place the JSON in your main response content, never in a reasoning or thinking channel."

// Builder renders analysis prompts.
type Builder struct{}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildSingleCurrency renders the prompt for a single-symbol analysis.
// Indicators without a computed value are omitted rather than rendered as
// null so the model never reasons over placeholder numbers.
func (b *Builder) BuildSingleCurrency(snapshot *models.MarketSnapshot, indicators models.TechnicalIndicators) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the market state of %s.\n\n", snapshot.Symbol)

	sb.WriteString("## Market Data\n")
	fmt.Fprintf(&sb, "- Current price: %.8g\n", snapshot.CurrentPrice)
	fmt.Fprintf(&sb, "- 24h change: %.2f%%\n", snapshot.Ticker.PriceChangePercent)
	fmt.Fprintf(&sb, "- 24h high: %.8g\n", snapshot.Ticker.HighPrice)
	fmt.Fprintf(&sb, "- 24h low: %.8g\n", snapshot.Ticker.LowPrice)
	fmt.Fprintf(&sb, "- 24h volume: %.8g\n", snapshot.Ticker.Volume)
	fmt.Fprintf(&sb, "- Candles analyzed: %d\n\n", len(snapshot.Candles))

	b.writeIndicators(&sb, indicators)
	b.writeInstructions(&sb)

	return sb.String()
}

// BuildMarketTrend renders the prompt for the multi-symbol market trend
// analysis. The indicator set is computed over the composite series.
func (b *Builder) BuildMarketTrend(symbols []string, snapshots []*models.MarketSnapshot, indicators models.TechnicalIndicators) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the overall market trend across %s.\n\n", strings.Join(symbols, ", "))

	sb.WriteString("## Per-Symbol Data\n")
	for _, snapshot := range snapshots {
		fmt.Fprintf(&sb, "- %s: price %.8g, 24h change %.2f%%, 24h volume %.8g\n",
			snapshot.Symbol, snapshot.CurrentPrice, snapshot.Ticker.PriceChangePercent, snapshot.Ticker.Volume)
	}
	sb.WriteString("\nThe indicators below are computed over a normalized composite of all symbols.\n\n")

	b.writeIndicators(&sb, indicators)
	b.writeInstructions(&sb)

	return sb.String()
}

func (b *Builder) writeIndicators(sb *strings.Builder, ind models.TechnicalIndicators) {
	sb.WriteString("## Computed Technical Indicators\n")

	if ind.RSI.Value != nil {
		fmt.Fprintf(sb, "- RSI(14): %.2f\n", *ind.RSI.Value)
	}
	if ind.MACD.Value != nil {
		fmt.Fprintf(sb, "- MACD(12,26,9): %.4f\n", *ind.MACD.Value)
	}
	if ind.MovingAverage.MA7 != nil {
		fmt.Fprintf(sb, "- MA7: %.8g\n", *ind.MovingAverage.MA7)
	}
	if ind.MovingAverage.MA50 != nil {
		fmt.Fprintf(sb, "- MA50: %.8g\n", *ind.MovingAverage.MA50)
	}
	if ind.MovingAverage.Position != "" {
		fmt.Fprintf(sb, "- Price position vs MA7: %s\n", ind.MovingAverage.Position)
	}
	if ind.BollingerBands.Upper != nil && ind.BollingerBands.Middle != nil && ind.BollingerBands.Lower != nil {
		fmt.Fprintf(sb, "- Bollinger Bands(20,2): upper %.8g, middle %.8g, lower %.8g, position %s, squeeze %t\n",
			*ind.BollingerBands.Upper, *ind.BollingerBands.Middle, *ind.BollingerBands.Lower,
			ind.BollingerBands.Position, ind.BollingerBands.Squeeze)
	}
	if ind.WilliamsR.Value != nil {
		fmt.Fprintf(sb, "- Williams %%R(14): %.2f\n", *ind.WilliamsR.Value)
	}
	if ind.Volume.Trend != "" {
		fmt.Fprintf(sb, "- Volume trend: %s\n", ind.Volume.Trend)
	}
	sb.WriteString("\n")
}

func (b *Builder) writeInstructions(sb *strings.Builder) {
	sb.WriteString("## Response Format\n")
	sb.WriteString("Respond with a single JSON object matching this schema exactly:\n\n")
	sb.WriteString(responseSchema)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Output JSON only. No markdown fences, no commentary before or after.\n")
	sb.WriteString("- Place the JSON in your main response content, not in a reasoning or thinking channel.\n")
	sb.WriteString("- confidence and score are integers from 0 to 100.\n")
	sb.WriteString("- Base your reading on the computed indicators above; do not invent numeric indicator values.\n")
	sb.WriteString("- If an indicator was not listed above, still provide its signal and interpretation based on the remaining data.\n")
}
