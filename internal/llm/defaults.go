package llm

import "github.com/ternarybob/mercatus/internal/models"

// DefaultModelMarker identifies results produced without any model response.
// Consumers use it to distinguish rule-based fallback output from genuine
// model output.
const DefaultModelMarker = "rule-based-fallback"

// DefaultAnalysis returns the neutral payload used when every provider in
// the chain fails. Indicator blocks are left empty so the merge keeps the
// rule-based signals computed by the indicator engine.
func DefaultAnalysis() *models.LLMAnalysis {
	return &models.LLMAnalysis{
		Trend: &models.Trend{
			Direction:  models.TrendNeutral,
			Confidence: 50,
			Summary:    "Automated analysis was unavailable; direction derived from computed indicators only.",
		},
		TechnicalAnalysis: &models.LLMTechnicalAnalysis{},
		MarketSentiment: &models.MarketSentiment{
			Score:   50,
			Label:   models.SentimentNeutral,
			Summary: "Sentiment could not be assessed without a model response.",
		},
	}
}
