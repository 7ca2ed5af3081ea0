// Package merger combines computed technical indicators with model output
// into the final analysis payload. Numeric values always come from the
// indicator engine; the model contributes signal labels, interpretation
// text, trend, and sentiment.
package merger

import (
	"strings"

	"github.com/ternarybob/mercatus/internal/llm"
	"github.com/ternarybob/mercatus/internal/models"
)

// Merge builds the final analysis from computed indicators and an extracted
// model payload. The computed numbers are authoritative and are never
// replaced; model signals and interpretations override the rule-based ones
// only when they are valid and non-empty.
func Merge(llmAnalysis *models.LLMAnalysis, computed models.TechnicalIndicators) models.Analysis {
	if llmAnalysis == nil {
		llmAnalysis = llm.DefaultAnalysis()
	}

	out := models.Analysis{
		TechnicalAnalysis: computed,
	}

	if llmAnalysis.Trend != nil {
		out.Trend = *llmAnalysis.Trend
	} else {
		out.Trend = *llm.DefaultAnalysis().Trend
	}

	if llmAnalysis.MarketSentiment != nil {
		out.MarketSentiment = *llmAnalysis.MarketSentiment
	} else {
		out.MarketSentiment = *llm.DefaultAnalysis().MarketSentiment
	}

	if ta := llmAnalysis.TechnicalAnalysis; ta != nil {
		applyOverlay(&out.TechnicalAnalysis.RSI.Signal, &out.TechnicalAnalysis.RSI.Interpretation, ta.RSI)
		applyOverlay(&out.TechnicalAnalysis.MACD.Signal, &out.TechnicalAnalysis.MACD.Interpretation, ta.MACD)
		applyOverlay(&out.TechnicalAnalysis.MovingAverage.Signal, &out.TechnicalAnalysis.MovingAverage.Interpretation, ta.MovingAverage)
		applyOverlay(&out.TechnicalAnalysis.BollingerBands.Signal, &out.TechnicalAnalysis.BollingerBands.Interpretation, ta.BollingerBands)
		applyOverlay(&out.TechnicalAnalysis.WilliamsR.Signal, &out.TechnicalAnalysis.WilliamsR.Interpretation, ta.WilliamsR)
		applyOverlay(&out.TechnicalAnalysis.Volume.Signal, &out.TechnicalAnalysis.Volume.Interpretation, ta.Volume)
	}

	return out
}

// applyOverlay copies the model's signal and interpretation onto a computed
// indicator. Invalid signal labels and empty interpretations keep the
// rule-based values. The model's numeric value, if any, is ignored.
func applyOverlay(signal *models.Signal, interpretation *string, overlay models.LLMIndicator) {
	candidate := models.Signal(strings.ToUpper(strings.TrimSpace(overlay.Signal)))
	if models.ValidSignal(candidate) {
		*signal = candidate
	}
	if text := strings.TrimSpace(overlay.Interpretation); text != "" {
		*interpretation = text
	}
}
