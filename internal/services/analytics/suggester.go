package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"CandleVault/internal/domain/models"
	"CandleVault/internal/service/validation"
)

// gapEpsilon is the minimum average-gap magnitude worth suggesting on.
var gapEpsilon = decimal.NewFromFloat(0.0001)

// Suggester derives autofill candidates from the history window and the
// fields already entered. It is read-only and never errors: absent history
// simply yields fewer (possibly zero) candidates.
type Suggester struct {
	cfg AnalyzerConfig
}

func NewSuggester(cfg AnalyzerConfig) *Suggester {
	return &Suggester{cfg: cfg}
}

// Suggest returns ranked candidates for one field, sorted by descending
// confidence; equal confidences keep insertion order.
func (s *Suggester) Suggest(field validation.Field, partial models.FormInput, window []*models.CandleRecord) []models.Suggestion {
	var out []models.Suggestion
	switch field {
	case validation.FieldOpen:
		out = s.suggestOpen(window)
	case validation.FieldHigh:
		out = s.suggestHigh(partial, window)
	case validation.FieldLow:
		out = s.suggestLow(partial, window)
	case validation.FieldClose:
		out = s.suggestClose(partial, window)
	case validation.FieldVolume:
		out = s.suggestVolume(window)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func (s *Suggester) suggestOpen(window []*models.CandleRecord) []models.Suggestion {
	if len(window) == 0 {
		return nil
	}
	prev := window[len(window)-1]
	out := []models.Suggestion{{
		Value:      prev.Close,
		Confidence: 90,
		Rationale:  "previous close",
	}}

	if len(window) >= 3 {
		sum := decimal.Zero
		n := 0
		for i := 1; i < len(window); i++ {
			sum = sum.Add(window[i].Open.Sub(window[i-1].Close))
			n++
		}
		avgGap := sum.Div(decimal.NewFromInt(int64(n)))
		if avgGap.Abs().GreaterThan(gapEpsilon) {
			out = append(out, models.Suggestion{
				Value:      prev.Close.Add(avgGap),
				Confidence: 60,
				Rationale:  "previous close adjusted by the average historical gap",
			})
		}
	}
	return out
}

func (s *Suggester) suggestHigh(partial models.FormInput, window []*models.CandleRecord) []models.Suggestion {
	var out []models.Suggestion

	entered := parseEntered(partial.Open, partial.Low, partial.Close)
	if len(entered) > 0 {
		out = append(out, models.Suggestion{
			Value:      decimal.Max(entered[0], entered[1:]...),
			Confidence: 80,
			Rationale:  "tightest high consistent with the entered fields",
		})
	}

	if avg, ok := s.averageRange(window); ok {
		if low, err := decimal.NewFromString(partial.Low); err == nil {
			out = append(out, models.Suggestion{
				Value:      low.Add(avg),
				Confidence: 70,
				Rationale:  fmt.Sprintf("entered low plus the %d-period average range", s.cfg.WindowSize),
			})
		}
	}
	return out
}

func (s *Suggester) suggestLow(partial models.FormInput, window []*models.CandleRecord) []models.Suggestion {
	var out []models.Suggestion

	entered := parseEntered(partial.Open, partial.High, partial.Close)
	if len(entered) > 0 {
		out = append(out, models.Suggestion{
			Value:      decimal.Min(entered[0], entered[1:]...),
			Confidence: 80,
			Rationale:  "tightest low consistent with the entered fields",
		})
	}

	if avg, ok := s.averageRange(window); ok {
		if high, err := decimal.NewFromString(partial.High); err == nil {
			out = append(out, models.Suggestion{
				Value:      high.Sub(avg),
				Confidence: 70,
				Rationale:  fmt.Sprintf("entered high minus the %d-period average range", s.cfg.WindowSize),
			})
		}
	}
	return out
}

func (s *Suggester) suggestClose(partial models.FormInput, window []*models.CandleRecord) []models.Suggestion {
	open, err := decimal.NewFromString(partial.Open)
	if err != nil {
		return nil
	}

	out := []models.Suggestion{{
		Value:      open,
		Confidence: 50,
		Rationale:  "doji close equal to open",
	}}

	seventy := decimal.NewFromFloat(0.7)
	high, highErr := decimal.NewFromString(partial.High)
	low, lowErr := decimal.NewFromString(partial.Low)
	if highErr == nil {
		out = append(out, models.Suggestion{
			Value:      open.Add(high.Sub(open).Mul(seventy)),
			Confidence: 60,
			Rationale:  "bullish close at 70% of the high distance",
		})
	}
	if lowErr == nil {
		out = append(out, models.Suggestion{
			Value:      open.Sub(open.Sub(low).Mul(seventy)),
			Confidence: 60,
			Rationale:  "bearish close at 70% of the low distance",
		})
	}

	if len(window) >= s.cfg.TrendLength && highErr == nil && lowErr == nil {
		recent := window[len(window)-s.cfg.TrendLength:]
		bullish := 0
		for _, r := range recent {
			if r.Bullish() {
				bullish++
			}
		}
		eighty := decimal.NewFromFloat(0.8)
		rng := high.Sub(low)
		if bullish >= s.cfg.TrendLength-1 {
			out = append(out, models.Suggestion{
				Value:      open.Add(rng.Mul(eighty)),
				Confidence: 75,
				Rationale:  "continuation of the bullish run at 80% of the range",
			})
		} else if bullish <= 1 {
			out = append(out, models.Suggestion{
				Value:      open.Sub(rng.Mul(eighty)),
				Confidence: 75,
				Rationale:  "continuation of the bearish run at 80% of the range",
			})
		}
	}
	return out
}

func (s *Suggester) suggestVolume(window []*models.CandleRecord) []models.Suggestion {
	if len(window) == 0 {
		return nil
	}
	out := []models.Suggestion{{
		Value:      window[len(window)-1].Volume,
		Confidence: 70,
		Rationale:  "previous volume",
	}}

	if len(window) >= s.cfg.WindowSize {
		recent := window[len(window)-s.cfg.WindowSize:]
		sum := decimal.Zero
		for _, r := range recent {
			sum = sum.Add(r.Volume)
		}
		out = append(out, models.Suggestion{
			Value:      sum.Div(decimal.NewFromInt(int64(len(recent)))).Round(0),
			Confidence: 85,
			Rationale:  fmt.Sprintf("%d-period average volume", s.cfg.WindowSize),
		})
	}

	if len(window) >= 10 {
		recent := window[len(window)-10:]
		vols := make([]decimal.Decimal, len(recent))
		for i, r := range recent {
			vols[i] = r.Volume
		}
		sort.Slice(vols, func(i, j int) bool { return vols[i].LessThan(vols[j]) })
		median := vols[len(vols)/2]
		if len(vols)%2 == 0 {
			median = vols[len(vols)/2-1].Add(vols[len(vols)/2]).Div(decimal.NewFromInt(2))
		}
		out = append(out, models.Suggestion{
			Value:      median.Round(0),
			Confidence: 80,
			Rationale:  "10-period median volume",
		})
	}
	return out
}

// averageRange returns the WindowSize-period average (high - low), needing a
// full window.
func (s *Suggester) averageRange(window []*models.CandleRecord) (decimal.Decimal, bool) {
	if len(window) < s.cfg.WindowSize {
		return decimal.Zero, false
	}
	recent := window[len(window)-s.cfg.WindowSize:]
	sum := decimal.Zero
	for _, r := range recent {
		sum = sum.Add(r.Range())
	}
	return sum.Div(decimal.NewFromInt(int64(len(recent)))), true
}

// parseEntered decodes whichever of the given raw values parse as numbers.
func parseEntered(raws ...string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, raw := range raws {
		if d, err := decimal.NewFromString(raw); err == nil {
			out = append(out, d)
		}
	}
	return out
}
