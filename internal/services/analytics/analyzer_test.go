package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
)

func candle(o, h, l, c, v float64) *models.CandleRecord {
	return &models.CandleRecord{
		SessionID: "s1",
		Open:      decimal.NewFromFloat(o),
		High:      decimal.NewFromFloat(h),
		Low:       decimal.NewFromFloat(l),
		Close:     decimal.NewFromFloat(c),
		Volume:    decimal.NewFromFloat(v),
		Timestamp: time.Now(),
	}
}

// steadyWindow builds n near-identical candles closing at price with the
// given volume.
func steadyWindow(n int, price, vol float64) []*models.CandleRecord {
	out := make([]*models.CandleRecord, n)
	for i := range out {
		out[i] = candle(price, price+1, price-1, price+0.5, vol)
	}
	return out
}

func findRule(vs []models.BusinessViolation, rule string) *models.BusinessViolation {
	for i := range vs {
		if vs[i].Rule == rule {
			return &vs[i]
		}
	}
	return nil
}

func TestPriceGapLevels(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	window := []*models.CandleRecord{candle(100, 101, 99, 100, 5000)}

	// 0.5% gap: quiet.
	vs := a.Analyze(candle(100.5, 101, 99, 100, 5000), window)
	assert.Nil(t, findRule(vs, RulePriceGap))

	// 2% gap: warning.
	vs = a.Analyze(candle(102, 103, 101, 102, 5000), window)
	v := findRule(vs, RulePriceGap)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationWarning, v.Severity)

	// 5% gap: error severity, still advisory.
	vs = a.Analyze(candle(105, 106, 104, 105, 5000), window)
	v = findRule(vs, RulePriceGap)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationError, v.Severity)
}

func TestAbnormalVolumeSixTimesAverage(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	window := steadyWindow(20, 100, 1_000_000)

	vs := a.Analyze(candle(100.5, 101, 100, 100.5, 6_000_000), window)
	v := findRule(vs, RuleVolume)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationWarning, v.Severity)
	assert.Contains(t, v.Message, "6x the 20-period average")
}

func TestAbnormalVolumeLow(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	window := steadyWindow(20, 100, 1_000_000)

	vs := a.Analyze(candle(100.5, 101, 100, 100.5, 50_000), window)
	v := findRule(vs, RuleVolume)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationInfo, v.Severity)
}

func TestVolumeRulesNeedFullWindow(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	window := steadyWindow(19, 100, 1_000_000)

	vs := a.Analyze(candle(100.5, 101, 100, 100.5, 6_000_000), window)
	assert.Nil(t, findRule(vs, RuleVolume))
	assert.Nil(t, findRule(vs, RuleVolatility))
}

func TestAbnormalVolatility(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	// Average range ratio 2/100 = 2%; candidate at 10% exceeds 3x that.
	window := steadyWindow(20, 100, 5000)

	vs := a.Analyze(candle(100, 110, 100, 101.5, 5000), window)
	v := findRule(vs, RuleVolatility)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationWarning, v.Severity)
}

func TestFlatPattern(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	vs := a.Analyze(candle(100, 100, 100, 100, 5000), nil)
	v := findRule(vs, RuleFlatPattern)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationWarning, v.Severity)
}

func TestExtremeWick(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	// Body 0.005 against a range of 10: body ratio 0.05%, wick > 95%.
	vs := a.Analyze(candle(100, 105, 95, 100.005, 5000), nil)
	v := findRule(vs, RuleExtremeWick)
	require.NotNil(t, v)
	assert.Equal(t, models.ViolationInfo, v.Severity)
}

func TestRoundNumberProximity(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	vs := a.Analyze(candle(100.11, 100.30, 100.05, 100.25, 5000), nil)
	assert.NotNil(t, findRule(vs, RuleRoundNumber))

	vs = a.Analyze(candle(100.11, 100.30, 100.05, 100.2543, 5000), nil)
	assert.Nil(t, findRule(vs, RuleRoundNumber))
}

func TestTrendContinuation(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	bullish := make([]*models.CandleRecord, 5)
	for i := range bullish {
		bullish[i] = candle(100, 102, 99, 101, 5000)
	}
	vs := a.Analyze(candle(101, 103, 100, 102, 5000), bullish)
	v := findRule(vs, RuleTrendComplete)
	require.NotNil(t, v)
	assert.Contains(t, v.Message, "bullish")

	mixed := append(bullish[:4:4], candle(101, 102, 99, 100, 5000))
	vs = a.Analyze(candle(101, 103, 100, 102, 5000), mixed)
	assert.Nil(t, findRule(vs, RuleTrendComplete))
}

func TestViolationsNeverEmptyMessage(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	window := steadyWindow(20, 100, 1_000_000)
	vs := a.Analyze(candle(110, 125, 109, 110, 9_000_000), window)
	require.NotEmpty(t, vs)
	for _, v := range vs {
		assert.NotEmpty(t, v.Rule)
		assert.NotEmpty(t, v.Message)
	}
}
