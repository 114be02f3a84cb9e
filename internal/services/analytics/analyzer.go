// Package analytics holds the contextual half of the pipeline: the
// business-rule analyzer and the suggestion engine. Both are pure functions
// of a candidate record and a caller-supplied trailing history window, and
// neither ever blocks a commit.
package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"CandleVault/internal/domain/models"
)

// Rule identifiers for business violations.
const (
	RulePriceGap      = "PRICE_GAP"
	RuleVolatility    = "ABNORMAL_VOLATILITY"
	RuleVolume        = "ABNORMAL_VOLUME"
	RuleFlatPattern   = "FLAT_PATTERN"
	RuleExtremeWick   = "EXTREME_WICK"
	RuleRoundNumber   = "ROUND_NUMBER"
	RuleTrendComplete = "TREND_CONTINUATION"
)

// AnalyzerConfig carries the multiplier thresholds. Like the spread guards
// they are domain-tuned values surfaced for operator review, not derived.
type AnalyzerConfig struct {
	GapWarnRatio   decimal.Decimal // warn above this open/prev-close gap
	GapErrorRatio  decimal.Decimal // error above this gap
	VolatilityMult decimal.Decimal // flag range ratio above mult * average
	VolumeHighMult decimal.Decimal // flag volume above mult * average
	VolumeLowMult  decimal.Decimal // flag volume below mult * average
	WindowSize     int             // records needed for averaged rules
	TrendLength    int             // records needed for the trend rule
}

// DefaultAnalyzerConfig returns the stock thresholds: 1%/3% gap, 3x
// volatility, 5x/0.1x volume, 20-record window, 5-record trend.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		GapWarnRatio:   decimal.NewFromFloat(0.01),
		GapErrorRatio:  decimal.NewFromFloat(0.03),
		VolatilityMult: decimal.NewFromInt(3),
		VolumeHighMult: decimal.NewFromInt(5),
		VolumeLowMult:  decimal.NewFromFloat(0.1),
		WindowSize:     20,
		TrendLength:    5,
	}
}

// Analyzer evaluates contextual anomaly rules against a bounded window of
// prior records.
type Analyzer struct {
	cfg AnalyzerConfig
}

func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze runs every rule independently and returns the non-nil findings in
// rule order. The window is ordered oldest first; its last element is the
// candle immediately preceding the candidate.
func (a *Analyzer) Analyze(candidate *models.CandleRecord, window []*models.CandleRecord) []models.BusinessViolation {
	checks := []func(*models.CandleRecord, []*models.CandleRecord) *models.BusinessViolation{
		a.priceGap,
		a.abnormalVolatility,
		a.abnormalVolume,
		a.flatPattern,
		a.roundNumber,
		a.trendContinuation,
	}

	var out []models.BusinessViolation
	for _, check := range checks {
		if v := check(candidate, window); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (a *Analyzer) priceGap(c *models.CandleRecord, window []*models.CandleRecord) *models.BusinessViolation {
	if len(window) == 0 {
		return nil
	}
	prev := window[len(window)-1]
	if prev.Close.IsZero() {
		return nil
	}
	gap := c.Open.Sub(prev.Close).Abs().Div(prev.Close)

	switch {
	case gap.GreaterThan(a.cfg.GapErrorRatio):
		return &models.BusinessViolation{
			Rule:     RulePriceGap,
			Severity: models.ViolationError,
			Message:  fmt.Sprintf("open gaps %s%% from the previous close", gap.Mul(decimal.NewFromInt(100)).Round(2)),
			Hint:     "verify the open against the prior candle before committing",
		}
	case gap.GreaterThan(a.cfg.GapWarnRatio):
		return &models.BusinessViolation{
			Rule:     RulePriceGap,
			Severity: models.ViolationWarning,
			Message:  fmt.Sprintf("open gaps %s%% from the previous close", gap.Mul(decimal.NewFromInt(100)).Round(2)),
		}
	}
	return nil
}

func (a *Analyzer) abnormalVolatility(c *models.CandleRecord, window []*models.CandleRecord) *models.BusinessViolation {
	if len(window) < a.cfg.WindowSize || c.Open.IsZero() {
		return nil
	}
	recent := window[len(window)-a.cfg.WindowSize:]

	sum := decimal.Zero
	n := 0
	for _, r := range recent {
		if r.Open.IsZero() {
			continue
		}
		sum = sum.Add(r.Range().Div(r.Open))
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum.Div(decimal.NewFromInt(int64(n)))
	if avg.IsZero() {
		return nil
	}

	ratio := c.Range().Div(c.Open)
	if ratio.GreaterThan(avg.Mul(a.cfg.VolatilityMult)) {
		return &models.BusinessViolation{
			Rule:     RuleVolatility,
			Severity: models.ViolationWarning,
			Message: fmt.Sprintf("range ratio %s is more than %sx the %d-period average",
				ratio.Round(4), a.cfg.VolatilityMult, a.cfg.WindowSize),
		}
	}
	return nil
}

func (a *Analyzer) abnormalVolume(c *models.CandleRecord, window []*models.CandleRecord) *models.BusinessViolation {
	if len(window) < a.cfg.WindowSize {
		return nil
	}
	recent := window[len(window)-a.cfg.WindowSize:]

	sum := decimal.Zero
	for _, r := range recent {
		sum = sum.Add(r.Volume)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(recent))))
	if avg.IsZero() {
		// Guard: a zero average makes any positive volume an infinite
		// multiple, which is noise, not signal.
		return nil
	}

	mult := c.Volume.Div(avg)
	switch {
	case mult.GreaterThan(a.cfg.VolumeHighMult):
		return &models.BusinessViolation{
			Rule:     RuleVolume,
			Severity: models.ViolationWarning,
			Message: fmt.Sprintf("volume is %sx the %d-period average",
				mult.Round(1), a.cfg.WindowSize),
			Hint: "confirm the volume figure was not fat-fingered",
		}
	case mult.LessThan(a.cfg.VolumeLowMult):
		return &models.BusinessViolation{
			Rule:     RuleVolume,
			Severity: models.ViolationInfo,
			Message: fmt.Sprintf("volume is only %sx the %d-period average",
				mult.Round(3), a.cfg.WindowSize),
		}
	}
	return nil
}

func (a *Analyzer) flatPattern(c *models.CandleRecord, _ []*models.CandleRecord) *models.BusinessViolation {
	if c.Open.Equal(c.High) && c.High.Equal(c.Low) && c.Low.Equal(c.Close) {
		return &models.BusinessViolation{
			Rule:     RuleFlatPattern,
			Severity: models.ViolationWarning,
			Message:  "all four OHLC values are identical",
			Hint:     "flat candles are rare in live markets, double-check the entry",
		}
	}

	rng := c.Range()
	if rng.IsZero() {
		return nil
	}
	body := c.Body()
	bodyRatio := body.Div(rng)
	wickRatio := rng.Sub(body).Div(rng)
	if bodyRatio.LessThan(decimal.NewFromFloat(0.01)) && wickRatio.GreaterThan(decimal.NewFromFloat(0.95)) {
		return &models.BusinessViolation{
			Rule:     RuleExtremeWick,
			Severity: models.ViolationInfo,
			Message:  "near-zero body with extreme wicks",
		}
	}
	return nil
}

func (a *Analyzer) roundNumber(c *models.CandleRecord, _ []*models.CandleRecord) *models.BusinessViolation {
	diff := c.Close.Sub(c.Close.Round(2)).Abs()
	if diff.LessThanOrEqual(decimal.NewFromFloat(0.0001)) {
		return &models.BusinessViolation{
			Rule:     RuleRoundNumber,
			Severity: models.ViolationInfo,
			Message:  fmt.Sprintf("close %s sits on a round number", c.Close),
		}
	}
	return nil
}

func (a *Analyzer) trendContinuation(c *models.CandleRecord, window []*models.CandleRecord) *models.BusinessViolation {
	if len(window) < a.cfg.TrendLength {
		return nil
	}
	recent := window[len(window)-a.cfg.TrendLength:]

	bullish, bearish := 0, 0
	for _, r := range recent {
		if r.Bullish() {
			bullish++
		} else if r.Bearish() {
			bearish++
		}
	}

	direction := ""
	switch {
	case bullish == a.cfg.TrendLength:
		direction = "bullish"
	case bearish == a.cfg.TrendLength:
		direction = "bearish"
	default:
		return nil
	}
	return &models.BusinessViolation{
		Rule:     RuleTrendComplete,
		Severity: models.ViolationInfo,
		Message:  fmt.Sprintf("last %d candles form an unbroken %s run", a.cfg.TrendLength, direction),
	}
}
