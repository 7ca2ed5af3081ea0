package extractor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/mercatus/internal/models"
)

const validPayload = `{
	"trend": {"direction": "bullish", "confidence": 72, "summary": "Momentum building."},
	"technicalAnalysis": {
		"rsi": {"signal": "HOLD", "interpretation": "Neutral zone."},
		"macd": {"signal": "BUY", "interpretation": "Positive crossover."},
		"movingAverage": {"signal": "BUY", "interpretation": "Price above MA7."},
		"bollingerBands": {"signal": "HOLD", "interpretation": "Inside the bands."},
		"williamsR": {"signal": "HOLD", "interpretation": "Mid-range."},
		"volume": {"signal": "WATCH", "interpretation": "Volume rising."}
	},
	"marketSentiment": {"score": 65, "label": "positive", "summary": "Cautiously optimistic."}
}`

func TestExtract_Direct(t *testing.T) {
	analysis, err := New().Extract(validPayload)
	require.NoError(t, err)

	assert.Equal(t, models.TrendBullish, analysis.Trend.Direction)
	assert.Equal(t, 72, analysis.Trend.Confidence)
	assert.Equal(t, "BUY", analysis.TechnicalAnalysis.MACD.Signal)
	assert.Equal(t, models.SentimentPositive, analysis.MarketSentiment.Label)
}

func TestExtract_MarkdownFenced(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	analysis, err := New().Extract(fenced)
	require.NoError(t, err)
	assert.Equal(t, models.TrendBullish, analysis.Trend.Direction)
}

func TestExtract_DoubleEncoded(t *testing.T) {
	// The model sometimes returns the object serialized as a JSON string
	encoded, err := json.Marshal(validPayload)
	require.NoError(t, err)

	analysis, err := New().Extract(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, models.TrendBullish, analysis.Trend.Direction)
}

func TestExtract_ControlCharsAndTrailingCommas(t *testing.T) {
	dirty := "{\x01\n" +
		`	"trend": {"direction": "neutral", "confidence": 50, "summary": "Flat.",},` + "\x7f\n" +
		`	"technicalAnalysis": {
			"rsi": {"signal": "HOLD", "interpretation": "n/a"},
			"macd": {"signal": "HOLD", "interpretation": "n/a"},
			"movingAverage": {"signal": "HOLD", "interpretation": "n/a"},
			"bollingerBands": {"signal": "HOLD", "interpretation": "n/a"},
			"williamsR": {"signal": "HOLD", "interpretation": "n/a"},
			"volume": {"signal": "HOLD", "interpretation": "n/a",},
		},
		"marketSentiment": {"score": 50, "label": "neutral", "summary": "Flat.",}
	}`

	analysis, err := New().Extract(dirty)
	require.NoError(t, err)
	assert.Equal(t, models.TrendNeutral, analysis.Trend.Direction)
}

func TestExtract_NewlineInsideStringValue(t *testing.T) {
	// Multi-line summaries arrive with raw newlines inside the string value
	payload := `{
		"trend": {"direction": "bullish", "confidence": 72, "summary": "Momentum building.
Second line of the summary."},
		"technicalAnalysis": {
			"rsi": {"signal": "HOLD", "interpretation": "n/a"},
			"macd": {"signal": "HOLD", "interpretation": "n/a"},
			"movingAverage": {"signal": "HOLD", "interpretation": "n/a"},
			"bollingerBands": {"signal": "HOLD", "interpretation": "n/a"},
			"williamsR": {"signal": "HOLD", "interpretation": "n/a"},
			"volume": {"signal": "HOLD", "interpretation": "n/a"}
		},
		"marketSentiment": {"score": 65, "label": "positive", "summary": "Good."}
	}`

	analysis, err := New().Extract(payload)
	require.NoError(t, err)
	assert.Equal(t, models.TrendBullish, analysis.Trend.Direction)
	assert.Contains(t, analysis.Trend.Summary, "Momentum building.")
}

func TestExtract_ProseWrappedObject(t *testing.T) {
	wrapped := "Sure, here is the analysis you asked for:\n\n" + validPayload + "\n\nLet me know if you need anything else."

	analysis, err := New().Extract(wrapped)
	require.NoError(t, err)
	assert.Equal(t, models.TrendBullish, analysis.Trend.Direction)
}

func TestExtract_BracesInsideSummaries(t *testing.T) {
	payload := `noise {
		"trend": {"direction": "bearish", "confidence": 40, "summary": "Support {key} level broken."},
		"technicalAnalysis": {
			"rsi": {"signal": "SELL", "interpretation": "Overbought } retreat"},
			"macd": {"signal": "SELL", "interpretation": "n/a"},
			"movingAverage": {"signal": "SELL", "interpretation": "n/a"},
			"bollingerBands": {"signal": "HOLD", "interpretation": "n/a"},
			"williamsR": {"signal": "SELL", "interpretation": "n/a"},
			"volume": {"signal": "HOLD", "interpretation": "n/a"}
		},
		"marketSentiment": {"score": 30, "label": "negative", "summary": "Risk-off."}
	} trailing noise`

	analysis, err := New().Extract(payload)
	require.NoError(t, err)
	assert.Equal(t, models.TrendBearish, analysis.Trend.Direction)
}

func TestExtract_MissingBlockRejected(t *testing.T) {
	missing := `{
		"trend": {"direction": "bullish", "confidence": 72, "summary": "ok"},
		"marketSentiment": {"score": 65, "label": "positive", "summary": "ok"}
	}`

	_, err := New().Extract(missing)

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}

func TestExtract_InvalidEnumRejected(t *testing.T) {
	bad := `{
		"trend": {"direction": "sideways", "confidence": 72, "summary": "ok"},
		"technicalAnalysis": {
			"rsi": {"signal": "HOLD", "interpretation": "n/a"},
			"macd": {"signal": "HOLD", "interpretation": "n/a"},
			"movingAverage": {"signal": "HOLD", "interpretation": "n/a"},
			"bollingerBands": {"signal": "HOLD", "interpretation": "n/a"},
			"williamsR": {"signal": "HOLD", "interpretation": "n/a"},
			"volume": {"signal": "HOLD", "interpretation": "n/a"}
		},
		"marketSentiment": {"score": 65, "label": "positive", "summary": "ok"}
	}`

	_, err := New().Extract(bad)

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
}

func TestExtract_GarbageInput(t *testing.T) {
	_, err := New().Extract("I am unable to analyze this market right now.")

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.NotEmpty(t, extractionErr.RawSample)
}

func TestExtract_EmptyInput(t *testing.T) {
	_, err := New().Extract("   \n  ")

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "empty response", extractionErr.Reason)
}

func TestExtract_RawSampleTruncated(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}

	_, err := New().Extract(string(long))

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.LessOrEqual(t, len(extractionErr.RawSample), 200)
}
