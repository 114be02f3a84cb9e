package validation

import "github.com/shopspring/decimal"

// Field enumerates the five candle form fields. Rule dispatch goes through
// the static fieldRules table instead of stringly-typed lookup.
type Field int

const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
	FieldVolume
)

var fieldNames = [...]string{"open", "high", "low", "close", "volume"}

func (f Field) String() string {
	if f < FieldOpen || f > FieldVolume {
		return "unknown"
	}
	return fieldNames[f]
}

// ParseField maps a field name to its enum value.
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// Fields returns all fields in canonical order.
func Fields() [5]Field {
	return [5]Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}
}

// fieldRule is the per-field rule set: every field is required, numeric and
// strictly positive; Max bounds the magnitude and Integral additionally
// requires a whole number.
type fieldRule struct {
	Max      decimal.Decimal
	Integral bool
}

var (
	maxPrice  = decimal.NewFromInt(1_000_000)
	maxVolume = decimal.NewFromInt(999_999_999)
)

var fieldRules = map[Field]fieldRule{
	FieldOpen:   {Max: maxPrice},
	FieldHigh:   {Max: maxPrice},
	FieldLow:    {Max: maxPrice},
	FieldClose:  {Max: maxPrice},
	FieldVolume: {Max: maxVolume, Integral: true},
}
