package models

// LLMIndicator is an indicator block as produced by the language model.
// The numeric value is parsed but never merged back into computed indicators;
// only the signal label and interpretation text are used downstream.
type LLMIndicator struct {
	Value          *float64 `json:"value,omitempty"`
	Signal         string   `json:"signal"`
	Interpretation string   `json:"interpretation"`
}

// LLMTechnicalAnalysis mirrors TechnicalIndicators with the looser per-field
// shape that model responses use.
type LLMTechnicalAnalysis struct {
	RSI            LLMIndicator `json:"rsi"`
	MACD           LLMIndicator `json:"macd"`
	MovingAverage  LLMIndicator `json:"movingAverage"`
	BollingerBands LLMIndicator `json:"bollingerBands"`
	WilliamsR      LLMIndicator `json:"williamsR"`
	Volume         LLMIndicator `json:"volume"`
}

// LLMAnalysis is the structured payload extracted from a model response.
// Pointer fields distinguish a missing block from an empty one; the extractor
// rejects payloads where any required block is absent.
type LLMAnalysis struct {
	Trend             *Trend                `json:"trend" validate:"required"`
	TechnicalAnalysis *LLMTechnicalAnalysis `json:"technicalAnalysis" validate:"required"`
	MarketSentiment   *MarketSentiment      `json:"marketSentiment" validate:"required"`
}
