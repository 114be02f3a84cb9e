package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
)

func input(o, h, l, c, v string) models.FormInput {
	return models.FormInput{Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestValidCandleNoErrorsNoWarnings(t *testing.T) {
	v := New(DefaultConfig())
	out, parsed := v.Validate(input("1.0850", "1.0870", "1.0840", "1.0860", "1000000"))

	require.True(t, out.Valid)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)
	require.NotNil(t, parsed)
	assert.True(t, parsed.High.Equal(decimal.RequireFromString("1.0870")))
}

func TestHighBelowOpenClose(t *testing.T) {
	v := New(DefaultConfig())
	out, parsed := v.Validate(input("1.0850", "1.0800", "1.0840", "1.0860", "1000000"))

	require.False(t, out.Valid)
	assert.Nil(t, parsed)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "high", out.Errors[0].Field)
	assert.Equal(t, CodeHighRange, out.Errors[0].Code)
	assert.Contains(t, out.Errors[0].Message, "high must be >= max(open, close)")
}

func TestCrossFieldErrorsAccumulate(t *testing.T) {
	v := New(DefaultConfig())
	// high < open/close, low > open/close, and high < low all at once.
	out, _ := v.Validate(input("100", "90", "110", "100", "5000"))

	require.False(t, out.Valid)
	codes := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, CodeHighRange)
	assert.Contains(t, codes, CodeLowRange)
	assert.Contains(t, codes, CodeHighLow)
}

func TestPerFieldRules(t *testing.T) {
	v := New(DefaultConfig())
	cases := []struct {
		name  string
		in    models.FormInput
		field string
		code  string
	}{
		{"missing open", input("", "2", "1", "1.5", "100"), "open", CodeRequired},
		{"non numeric close", input("1", "2", "1", "x", "100"), "close", CodeNumeric},
		{"zero low", input("1", "2", "0", "1.5", "100"), "low", CodePositive},
		{"price above bound", input("1", "2000000", "1", "1.5", "100"), "high", CodeMax},
		{"fractional volume", input("1", "2", "1", "1.5", "100.5"), "volume", CodeIntegral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := v.Validate(tc.in)
			require.False(t, out.Valid)
			require.NotEmpty(t, out.Errors)
			assert.Equal(t, tc.field, out.Errors[0].Field)
			assert.Equal(t, tc.code, out.Errors[0].Code)
		})
	}
}

func TestSpreadRatioGuard(t *testing.T) {
	v := New(DefaultConfig())
	// spread 20 over mid 110 is ~18%, beyond the 10% guard.
	out, _ := v.Validate(input("105", "120", "100", "118", "5000"))
	require.False(t, out.Valid)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, CodeSpreadRatio, out.Errors[0].Code)
	assert.Equal(t, "high", out.Errors[0].Field)
}

func TestWarnings(t *testing.T) {
	v := New(DefaultConfig())

	// Flat candle: spread ratio below 0.01% -> medium warning; volume below
	// 1000 -> low warning.
	out, _ := v.Validate(input("100", "100", "100", "100", "500"))
	require.True(t, out.Valid)
	require.Len(t, out.Warnings, 2)
	assert.Equal(t, models.WarnMedium, out.Warnings[0].Severity)
	assert.Equal(t, "volume", out.Warnings[1].Field)
	assert.Equal(t, models.WarnLow, out.Warnings[1].Severity)

	// Wide candle just under the 10% guard -> high warning.
	out, _ = v.Validate(input("100", "104", "97", "98", "5000"))
	require.True(t, out.Valid)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, models.WarnHigh, out.Warnings[0].Severity)
}

func TestOHLCInvariantSoundness(t *testing.T) {
	v := New(DefaultConfig())
	accepted := [][5]string{
		{"1.0850", "1.0870", "1.0840", "1.0860", "1000000"},
		{"100", "100", "100", "100", "5000"},
		{"50.5", "51", "50.1", "50.2", "12345"},
	}
	for _, c := range accepted {
		out, p := v.Validate(input(c[0], c[1], c[2], c[3], c[4]))
		require.True(t, out.Valid, "candle %v", c)
		require.NotNil(t, p)
		assert.True(t, p.High.GreaterThanOrEqual(p.Open))
		assert.True(t, p.High.GreaterThanOrEqual(p.Close))
		assert.True(t, p.High.GreaterThanOrEqual(p.Low))
		assert.True(t, p.Low.LessThanOrEqual(p.Open))
		assert.True(t, p.Low.LessThanOrEqual(p.Close))
	}
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("volume")
	require.True(t, ok)
	assert.Equal(t, FieldVolume, f)
	_, ok = ParseField("spread")
	assert.False(t, ok)
}
