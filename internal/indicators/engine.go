// Package indicators computes deterministic technical indicators from OHLCV
// series. Every function fails to "unavailable" on insufficient history or
// non-finite inputs instead of producing a fabricated number; a bad input for
// one indicator never poisons the rest of the result.
package indicators

import (
	"fmt"

	"github.com/ternarybob/mercatus/internal/models"
)

// squeezeThreshold is the band-width ratio below which Bollinger Bands are
// considered squeezed.
const squeezeThreshold = 0.05

// volumeTrendThreshold is the relative change separating rising/falling from
// stable volume.
const volumeTrendThreshold = 0.10

// Params holds the lookback periods used by Compute.
type Params struct {
	RSIPeriod           int
	MACDFast            int
	MACDSlow            int
	MACDSignal          int
	MAShort             int
	MALong              int
	BollingerPeriod     int
	BollingerMultiplier float64
	WilliamsPeriod      int
	VolumePeriod        int
}

// DefaultParams returns the standard lookback configuration.
func DefaultParams() Params {
	return Params{
		RSIPeriod:           14,
		MACDFast:            12,
		MACDSlow:            26,
		MACDSignal:          9,
		MAShort:             7,
		MALong:              50,
		BollingerPeriod:     20,
		BollingerMultiplier: 2.0,
		WilliamsPeriod:      14,
		VolumePeriod:        7,
	}
}

// Series holds equal-length chronological OHLCV arrays.
type Series struct {
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// RSI computes the Wilder-smoothed relative strength index. Requires at least
// period+1 closes; returns ok=false when history is insufficient or inputs
// are not finite.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	if !allFinite(closes) {
		return 0, false
	}

	// Initial average gain/loss over the first period changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining bars
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), true
}

// MACD computes the fast/slow EMA difference. Requires at least slow+signal
// closes so the value is backed by a meaningful warm-up window.
func MACD(closes []float64, fast, slow, signal int) (float64, bool) {
	if fast <= 0 || slow <= fast || len(closes) < slow+signal {
		return 0, false
	}
	if !allFinite(closes) {
		return 0, false
	}
	fastEMA, ok := ema(closes, fast)
	if !ok {
		return 0, false
	}
	slowEMA, ok := ema(closes, slow)
	if !ok {
		return 0, false
	}
	return fastEMA - slowEMA, true
}

// SMA computes the trailing simple moving average over period values.
func SMA(values []float64, period int) (float64, bool) {
	if !allFinite(tail(values, period)) {
		return 0, false
	}
	return sma(values, period)
}

// BollingerBands computes mean +/- multiplier*stddev over the trailing
// period. Returns ok=false instead of dividing by a period larger than the
// available data.
func BollingerBands(closes []float64, period int, multiplier float64) (upper, middle, lower float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, 0, 0, false
	}
	window := tail(closes, period)
	if !allFinite(window) {
		return 0, 0, 0, false
	}
	middle, _ = sma(closes, period)
	sd := stddev(window)
	upper = middle + multiplier*sd
	lower = middle - multiplier*sd
	return upper, middle, lower, true
}

// WilliamsR computes the Williams %R oscillator over the trailing period.
// Degenerate windows where highestHigh equals lowestLow are unavailable
// rather than a division by zero.
func WilliamsR(highs, lows, closes []float64, period int) (float64, bool) {
	if period <= 0 || len(highs) < period || len(lows) < period || len(closes) < 1 {
		return 0, false
	}
	hw := tail(highs, period)
	lw := tail(lows, period)
	if !allFinite(hw) || !allFinite(lw) || !allFinite(closes[len(closes)-1:]) {
		return 0, false
	}

	highestHigh := hw[0]
	lowestLow := lw[0]
	for _, h := range hw {
		if h > highestHigh {
			highestHigh = h
		}
	}
	for _, l := range lw {
		if l < lowestLow {
			lowestLow = l
		}
	}

	if highestHigh == lowestLow {
		return 0, false
	}
	close := closes[len(closes)-1]
	return (highestHigh - close) / (highestHigh - lowestLow) * -100.0, true
}

// VolumeTrend compares the recent period average volume against the prior
// period average. Requires 2*period points.
func VolumeTrend(volumes []float64, period int) (string, bool) {
	if period <= 0 || len(volumes) < 2*period {
		return "", false
	}
	window := tail(volumes, 2*period)
	if !allFinite(window) {
		return "", false
	}

	prior := 0.0
	recent := 0.0
	for i := 0; i < period; i++ {
		prior += window[i]
		recent += window[period+i]
	}
	prior /= float64(period)
	recent /= float64(period)

	if prior == 0 {
		if recent > 0 {
			return "rising", true
		}
		return "stable", true
	}

	change := (recent - prior) / prior
	switch {
	case change > volumeTrendThreshold:
		return "rising", true
	case change < -volumeTrendThreshold:
		return "falling", true
	default:
		return "stable", true
	}
}

// Compute produces the full indicator set for a series. Unavailable
// indicators carry a nil value with a HOLD signal; available ones get a
// rule-based signal and interpretation that the merger may later supplement
// with model-generated text.
func Compute(p Params, s Series, currentPrice float64) models.TechnicalIndicators {
	var out models.TechnicalIndicators

	out.RSI = computeRSI(s.Closes, p.RSIPeriod)
	out.MACD = computeMACD(s.Closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	out.MovingAverage = computeMovingAverage(s.Closes, p.MAShort, p.MALong, currentPrice)
	out.BollingerBands = computeBollinger(s.Closes, p.BollingerPeriod, p.BollingerMultiplier)
	out.WilliamsR = computeWilliamsR(s.Highs, s.Lows, s.Closes, p.WilliamsPeriod)
	out.Volume = computeVolume(s.Volumes, p.VolumePeriod)

	return out
}

func computeRSI(closes []float64, period int) models.RSIIndicator {
	v, ok := RSI(closes, period)
	if !ok {
		return models.RSIIndicator{Signal: models.SignalHold, Interpretation: "insufficient history"}
	}
	v = round(v, 2)
	ind := models.RSIIndicator{Value: ptr(v)}
	switch {
	case v > 70:
		ind.Signal = models.SignalSell
		ind.Interpretation = fmt.Sprintf("RSI %.2f indicates overbought conditions", v)
	case v < 30:
		ind.Signal = models.SignalBuy
		ind.Interpretation = fmt.Sprintf("RSI %.2f indicates oversold conditions", v)
	default:
		ind.Signal = models.SignalHold
		ind.Interpretation = fmt.Sprintf("RSI %.2f is in neutral territory", v)
	}
	return ind
}

func computeMACD(closes []float64, fast, slow, signal int) models.MACDIndicator {
	v, ok := MACD(closes, fast, slow, signal)
	if !ok {
		return models.MACDIndicator{Signal: models.SignalHold, Interpretation: "insufficient history"}
	}
	v = round(v, 4)
	ind := models.MACDIndicator{Value: ptr(v)}
	switch {
	case v > 0:
		ind.Signal = models.SignalBuy
		ind.Interpretation = "MACD above zero, bullish momentum"
	case v < 0:
		ind.Signal = models.SignalSell
		ind.Interpretation = "MACD below zero, bearish momentum"
	default:
		ind.Signal = models.SignalHold
		ind.Interpretation = "MACD flat"
	}
	return ind
}

func computeMovingAverage(closes []float64, short, long int, currentPrice float64) models.MovingAverageIndicator {
	var ind models.MovingAverageIndicator
	ind.Signal = models.SignalHold
	ind.Interpretation = "insufficient history"

	shortMA, shortOK := SMA(closes, short)
	if shortOK {
		ind.MA7 = ptr(round(shortMA, 2))
	}
	longMA, longOK := SMA(closes, long)
	if longOK {
		ind.MA50 = ptr(round(longMA, 2))
	}
	if !shortOK {
		return ind
	}

	switch {
	case currentPrice > shortMA:
		ind.Position = "above"
	case currentPrice < shortMA:
		ind.Position = "below"
	default:
		ind.Position = "at"
	}

	if longOK {
		switch {
		case currentPrice > shortMA && shortMA > longMA:
			ind.Signal = models.SignalBuy
			ind.Interpretation = "price above short MA with short above long, uptrend intact"
		case currentPrice < shortMA && shortMA < longMA:
			ind.Signal = models.SignalSell
			ind.Interpretation = "price below short MA with short below long, downtrend intact"
		default:
			ind.Signal = models.SignalHold
			ind.Interpretation = "moving averages mixed"
		}
	} else {
		ind.Signal = models.SignalHold
		ind.Interpretation = fmt.Sprintf("price %s %d-period average", ind.Position, short)
	}
	return ind
}

func computeBollinger(closes []float64, period int, multiplier float64) models.BollingerBandsIndicator {
	upper, middle, lower, ok := BollingerBands(closes, period, multiplier)
	if !ok {
		return models.BollingerBandsIndicator{Signal: models.SignalHold, Interpretation: "insufficient history"}
	}

	ind := models.BollingerBandsIndicator{
		Upper:  ptr(round(upper, 2)),
		Middle: ptr(round(middle, 2)),
		Lower:  ptr(round(lower, 2)),
	}
	if middle != 0 {
		ind.Squeeze = (upper-lower)/middle < squeezeThreshold
	}

	close := closes[len(closes)-1]
	switch {
	case close > upper:
		ind.Position = "above"
		ind.Signal = models.SignalSell
		ind.Interpretation = "price above upper band"
	case close < lower:
		ind.Position = "below"
		ind.Signal = models.SignalBuy
		ind.Interpretation = "price below lower band"
	default:
		ind.Position = "inside"
		if ind.Squeeze {
			ind.Signal = models.SignalWatch
			ind.Interpretation = "volatility squeeze, breakout likely"
		} else {
			ind.Signal = models.SignalHold
			ind.Interpretation = "price inside bands"
		}
	}
	return ind
}

func computeWilliamsR(highs, lows, closes []float64, period int) models.WilliamsRIndicator {
	v, ok := WilliamsR(highs, lows, closes, period)
	if !ok {
		return models.WilliamsRIndicator{Signal: models.SignalHold, Interpretation: "insufficient history"}
	}
	v = round(v, 2)
	ind := models.WilliamsRIndicator{Value: ptr(v)}
	switch {
	case v > -20:
		ind.Signal = models.SignalSell
		ind.Interpretation = fmt.Sprintf("Williams %%R %.2f indicates overbought conditions", v)
	case v < -80:
		ind.Signal = models.SignalBuy
		ind.Interpretation = fmt.Sprintf("Williams %%R %.2f indicates oversold conditions", v)
	default:
		ind.Signal = models.SignalHold
		ind.Interpretation = fmt.Sprintf("Williams %%R %.2f is in neutral territory", v)
	}
	return ind
}

func computeVolume(volumes []float64, period int) models.VolumeIndicator {
	trend, ok := VolumeTrend(volumes, period)
	if !ok {
		return models.VolumeIndicator{Signal: models.SignalHold, Interpretation: "insufficient history"}
	}
	ind := models.VolumeIndicator{Trend: trend}
	switch trend {
	case "rising":
		ind.Signal = models.SignalWatch
		ind.Interpretation = "volume rising versus prior period"
	case "falling":
		ind.Signal = models.SignalHold
		ind.Interpretation = "volume falling versus prior period"
	default:
		ind.Signal = models.SignalHold
		ind.Interpretation = "volume stable"
	}
	return ind
}
