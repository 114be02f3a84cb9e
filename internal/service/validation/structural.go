// Package validation enforces the structural invariants a single candle must
// satisfy, independent of session history.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"CandleVault/internal/domain/models"
)

// Error codes for structural failures.
const (
	CodeRequired    = "ERR_REQUIRED"
	CodeNumeric     = "ERR_NUMERIC"
	CodePositive    = "ERR_POSITIVE"
	CodeMax         = "ERR_MAX"
	CodeIntegral    = "ERR_INTEGRAL"
	CodeHighRange   = "ERR_HIGH_RANGE"
	CodeLowRange    = "ERR_LOW_RANGE"
	CodeHighLow     = "ERR_HIGH_LOW"
	CodeSpreadRatio = "ERR_SPREAD_RATIO"
)

// Config carries the tunable thresholds. The spread guards are domain-tuned
// values with no stated derivation; they are configuration, not constants.
type Config struct {
	// SpreadErrorRatio rejects candles whose (high-low)/mid exceeds it.
	SpreadErrorRatio decimal.Decimal
	// SpreadWarnHighRatio warns on unusually wide candles.
	SpreadWarnHighRatio decimal.Decimal
	// SpreadWarnLowRatio warns on near-zero movement (possible duplicate).
	SpreadWarnLowRatio decimal.Decimal
	// LowVolumeWarn warns on volume below this level.
	LowVolumeWarn decimal.Decimal
}

// DefaultConfig returns the stock thresholds: 10% hard error, 5% high
// warning, 0.01% duplicate warning, 1000 volume floor.
func DefaultConfig() Config {
	return Config{
		SpreadErrorRatio:    decimal.NewFromFloat(0.10),
		SpreadWarnHighRatio: decimal.NewFromFloat(0.05),
		SpreadWarnLowRatio:  decimal.NewFromFloat(0.0001),
		LowVolumeWarn:       decimal.NewFromInt(1000),
	}
}

// Validator checks type, range and OHLC relational invariants on a single
// record.
type Validator struct {
	cfg Config
}

func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Parsed holds the decoded field values of a structurally valid input.
type Parsed struct {
	Open, High, Low, Close, Volume decimal.Decimal
}

// Validate runs every per-field rule, then -- only when all fields parse
// clean -- every cross-field rule. Cross-field errors accumulate rather than
// short-circuit so the caller sees all violations at once.
func (v *Validator) Validate(fields models.FormInput) (*models.ValidationOutcome, *Parsed) {
	out := &models.ValidationOutcome{Valid: true}

	vals := fields.Values()
	parsed := make(map[Field]decimal.Decimal, 5)
	for _, f := range Fields() {
		d, ok := v.validateField(f, vals[f], out)
		if ok {
			parsed[f] = d
		}
	}
	if !out.Valid {
		return out, nil
	}

	p := &Parsed{
		Open:   parsed[FieldOpen],
		High:   parsed[FieldHigh],
		Low:    parsed[FieldLow],
		Close:  parsed[FieldClose],
		Volume: parsed[FieldVolume],
	}
	v.validateCross(p, out)
	if !out.Valid {
		return out, nil
	}

	v.appendWarnings(p, out)
	return out, p
}

// ValidateField checks a single named field, supporting per-field re-prompt
// flows. Cross-field rules are not evaluated.
func (v *Validator) ValidateField(f Field, value string) *models.ValidationOutcome {
	out := &models.ValidationOutcome{Valid: true}
	v.validateField(f, value, out)
	return out
}

func (v *Validator) validateField(f Field, value string, out *models.ValidationOutcome) (decimal.Decimal, bool) {
	name := f.String()
	rule := fieldRules[f]

	if value == "" {
		out.AddError(name, CodeRequired, fmt.Sprintf("%s is required", name))
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		out.AddError(name, CodeNumeric, fmt.Sprintf("%s must be a number", name))
		return decimal.Zero, false
	}
	if !d.IsPositive() {
		out.AddError(name, CodePositive, fmt.Sprintf("%s must be greater than zero", name))
		return decimal.Zero, false
	}
	if d.GreaterThan(rule.Max) {
		out.AddError(name, CodeMax, fmt.Sprintf("%s must be at most %s", name, rule.Max))
		return decimal.Zero, false
	}
	if rule.Integral && !d.IsInteger() {
		out.AddError(name, CodeIntegral, fmt.Sprintf("%s must be a whole number", name))
		return decimal.Zero, false
	}
	return d, true
}

func (v *Validator) validateCross(p *Parsed, out *models.ValidationOutcome) {
	maxOC := decimal.Max(p.Open, p.Close)
	minOC := decimal.Min(p.Open, p.Close)

	if p.High.LessThan(maxOC) {
		out.AddError("high", CodeHighRange, "high must be >= max(open, close)")
	}
	if p.Low.GreaterThan(minOC) {
		out.AddError("low", CodeLowRange, "low must be <= min(open, close)")
	}
	if p.High.LessThan(p.Low) {
		out.AddError("high", CodeHighLow, "high must be >= low")
	}
	if ratio, ok := spreadRatio(p); ok && ratio.GreaterThan(v.cfg.SpreadErrorRatio) {
		out.AddError("high", CodeSpreadRatio,
			fmt.Sprintf("spread ratio %s exceeds the %s limit, check for a magnitude error",
				ratio.Round(4), v.cfg.SpreadErrorRatio))
	}
}

func (v *Validator) appendWarnings(p *Parsed, out *models.ValidationOutcome) {
	if ratio, ok := spreadRatio(p); ok {
		if ratio.LessThan(v.cfg.SpreadWarnLowRatio) {
			out.AddWarning("high", "spread is near zero, possible duplicate or no-movement candle", models.WarnMedium)
		} else if ratio.GreaterThan(v.cfg.SpreadWarnHighRatio) {
			out.AddWarning("high", "spread is unusually wide for a single candle", models.WarnHigh)
		}
	}
	if p.Volume.LessThan(v.cfg.LowVolumeWarn) {
		out.AddWarning("volume", fmt.Sprintf("volume below %s", v.cfg.LowVolumeWarn), models.WarnLow)
	}
}

// spreadRatio computes (high-low) / ((high+low)/2); ok is false when the
// midpoint is zero.
func spreadRatio(p *Parsed) (decimal.Decimal, bool) {
	mid := p.High.Add(p.Low).Div(decimal.NewFromInt(2))
	if mid.IsZero() {
		return decimal.Zero, false
	}
	return p.High.Sub(p.Low).Div(mid), true
}
