package indicators

import (
	"math"
	"testing"

	"github.com/ternarybob/mercatus/internal/models"
)

func constant(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func rising(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestRSI_InsufficientHistory(t *testing.T) {
	closes := []float64{100, 101, 102, 101, 103}
	if _, ok := RSI(closes, 14); ok {
		t.Error("RSI with 5 closes and period 14 should be unavailable")
	}
}

func TestRSI_AllGains(t *testing.T) {
	v, ok := RSI(rising(100, 1, 20), 14)
	if !ok {
		t.Fatal("RSI should be available with 20 closes")
	}
	if v != 100.0 {
		t.Errorf("RSI of monotonically rising closes = %v, want 100", v)
	}
}

func TestRSI_Bounded(t *testing.T) {
	closes := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28}
	v, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI should be available with 15 closes")
	}
	if v < 0 || v > 100 {
		t.Errorf("RSI = %v, want within [0, 100]", v)
	}
	if v < 60 || v > 80 {
		t.Errorf("RSI = %v, want around 70 for this well-known series", v)
	}
}

func TestRSI_NaNInput(t *testing.T) {
	closes := rising(100, 1, 20)
	closes[5] = math.NaN()
	if _, ok := RSI(closes, 14); ok {
		t.Error("RSI with NaN input should be unavailable")
	}
}

func TestMACD_HistoryBoundary(t *testing.T) {
	// 12/26/9 requires slow+signal = 35 points
	if _, ok := MACD(rising(100, 0.5, 34), 12, 26, 9); ok {
		t.Error("MACD with 34 closes should be unavailable")
	}
	v, ok := MACD(rising(100, 0.5, 35), 12, 26, 9)
	if !ok {
		t.Fatal("MACD with 35 closes should be available")
	}
	if v <= 0 {
		t.Errorf("MACD of rising series = %v, want positive", v)
	}
}

func TestBollingerBands_Ordering(t *testing.T) {
	closes := []float64{98, 102, 99, 103, 97, 101, 100, 104, 96, 100, 99, 102, 98, 103, 97, 101, 100, 99, 102, 98}
	upper, middle, lower, ok := BollingerBands(closes, 20, 2)
	if !ok {
		t.Fatal("bands should be available with 20 closes")
	}
	if !(upper >= middle && middle >= lower) {
		t.Errorf("band ordering violated: upper=%v middle=%v lower=%v", upper, middle, lower)
	}
}

func TestBollingerBands_HandComputedMiddle(t *testing.T) {
	// 7 identical candles with close 100000: middle is the plain mean
	closes := constant(100000, 7)
	upper, middle, lower, ok := BollingerBands(closes, 7, 2)
	if !ok {
		t.Fatal("bands should be available with 7 closes and period 7")
	}
	if round(middle, 2) != 100000.00 {
		t.Errorf("middle = %v, want 100000.00", middle)
	}
	if upper != middle || lower != middle {
		t.Errorf("zero-variance series should collapse bands: upper=%v lower=%v", upper, lower)
	}
}

func TestBollingerBands_InsufficientHistory(t *testing.T) {
	if _, _, _, ok := BollingerBands(constant(100, 5), 20, 2); ok {
		t.Error("bands with 5 closes and period 20 should be unavailable")
	}
}

func TestBollinger_Squeeze(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		squeeze bool
	}{
		{"flat series squeezes", constant(100, 20), true},
		{"wide series does not", rising(100, 5, 20), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := computeBollinger(tt.closes, 20, 2)
			if ind.Squeeze != tt.squeeze {
				t.Errorf("Squeeze = %v, want %v", ind.Squeeze, tt.squeeze)
			}
		})
	}
}

func TestWilliamsR_Value(t *testing.T) {
	highs := constant(110, 14)
	lows := constant(90, 14)
	closes := constant(100, 14)
	v, ok := WilliamsR(highs, lows, closes, 14)
	if !ok {
		t.Fatal("WilliamsR should be available")
	}
	if v != -50.0 {
		t.Errorf("WilliamsR = %v, want -50 for midpoint close", v)
	}
}

func TestWilliamsR_DegenerateRange(t *testing.T) {
	flat := constant(100, 14)
	if _, ok := WilliamsR(flat, flat, flat, 14); ok {
		t.Error("WilliamsR with highestHigh == lowestLow should be unavailable, not a division by zero")
	}
}

func TestVolumeTrend(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		want    string
	}{
		{"rising", append(constant(1000, 7), constant(1500, 7)...), "rising"},
		{"falling", append(constant(1500, 7), constant(1000, 7)...), "falling"},
		{"stable", append(constant(1000, 7), constant(1050, 7)...), "stable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := VolumeTrend(tt.volumes, 7)
			if !ok {
				t.Fatal("trend should be available with 14 points")
			}
			if got != tt.want {
				t.Errorf("VolumeTrend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeTrend_InsufficientHistory(t *testing.T) {
	if _, ok := VolumeTrend(constant(1000, 10), 7); ok {
		t.Error("trend with 10 points and period 7 should be unavailable")
	}
}

func TestCompute_NaNIsolatedPerIndicator(t *testing.T) {
	// A NaN in the closes makes close-derived indicators unavailable but
	// must not take down the volume trend.
	closes := rising(100, 1, 60)
	closes[30] = math.NaN()
	s := Series{
		Highs:   rising(101, 1, 60),
		Lows:    rising(99, 1, 60),
		Closes:  closes,
		Volumes: append(constant(1000, 53), constant(2000, 7)...),
	}

	out := Compute(DefaultParams(), s, 160)

	if out.RSI.Value != nil {
		t.Error("RSI should be unavailable with NaN in closes")
	}
	if out.MACD.Value != nil {
		t.Error("MACD should be unavailable with NaN in closes")
	}
	if out.Volume.Trend != "rising" {
		t.Errorf("Volume.Trend = %v, want rising despite NaN in closes", out.Volume.Trend)
	}
}

func TestCompute_SignalRules(t *testing.T) {
	s := Series{
		Highs:   rising(101, 1, 60),
		Lows:    rising(99, 1, 60),
		Closes:  rising(100, 1, 60),
		Volumes: constant(1000, 60),
	}
	out := Compute(DefaultParams(), s, 160)

	if out.RSI.Value == nil {
		t.Fatal("RSI should be available")
	}
	if *out.RSI.Value <= 70 {
		t.Errorf("RSI = %v, want overbought for a monotonic rise", *out.RSI.Value)
	}
	if out.RSI.Signal != models.SignalSell {
		t.Errorf("RSI.Signal = %v, want SELL above 70", out.RSI.Signal)
	}
	if out.MACD.Signal != models.SignalBuy {
		t.Errorf("MACD.Signal = %v, want BUY for positive MACD", out.MACD.Signal)
	}
	if out.MovingAverage.Position != "above" {
		t.Errorf("MovingAverage.Position = %v, want above", out.MovingAverage.Position)
	}
}

func TestCompute_ShortHistoryIsAllUnavailable(t *testing.T) {
	s := Series{
		Highs:   constant(101, 3),
		Lows:    constant(99, 3),
		Closes:  constant(100, 3),
		Volumes: constant(1000, 3),
	}
	out := Compute(DefaultParams(), s, 100)

	if out.RSI.Value != nil || out.MACD.Value != nil || out.BollingerBands.Middle != nil || out.WilliamsR.Value != nil {
		t.Error("all numeric values should be nil for a 3-point series")
	}
	if out.RSI.Signal != models.SignalHold {
		t.Errorf("unavailable indicator signal = %v, want HOLD", out.RSI.Signal)
	}
}
