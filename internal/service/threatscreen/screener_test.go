package threatscreen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
	"CandleVault/internal/service/ratelimit"
	"CandleVault/internal/service/sanitize"
)

func validInput() models.FormInput {
	return models.FormInput{Open: "1.0850", High: "1.0870", Low: "1.0840", Close: "1.0860", Volume: "1000000"}
}

func sanitized(in models.FormInput) models.FormInput {
	return models.FormInput{
		Open:   sanitize.Sanitize(in.Open),
		High:   sanitize.Sanitize(in.High),
		Low:    sanitize.Sanitize(in.Low),
		Close:  sanitize.Sanitize(in.Close),
		Volume: sanitize.Sanitize(in.Volume),
	}
}

func TestScreenPasses(t *testing.T) {
	s := New(nil)
	in := validInput()
	res := s.Screen(in, sanitized(in), "trader-1")
	assert.True(t, res.Passed)
	assert.Empty(t, res.Reason)
}

func TestScriptTagRejected(t *testing.T) {
	s := New(nil)
	in := validInput()
	in.Open = "<script>alert(1)</script>"
	res := s.Screen(in, sanitized(in), "trader-1")
	require.False(t, res.Passed)
	assert.Equal(t, CodeSignature, res.Code)
	assert.Contains(t, res.Reason, "script tag")
}

func TestSignatureVariants(t *testing.T) {
	cases := map[string]string{
		"<img onerror=alert(1)>":  "event handler",
		"select id from users":    "sql select",
		"1 union select password": "sql union",
		"<iframe src=x>":          "iframe",
		"data:text/html,<b>":      "data uri",
		"vbscript:msgbox":         "vbscript",
		"drop table candles":      "sql drop",
	}
	s := New(nil)
	for input, wantFragment := range cases {
		in := validInput()
		in.Close = input
		res := s.Screen(in, sanitized(in), "x")
		require.False(t, res.Passed, "input %q should be rejected", input)
		assert.Contains(t, res.Reason, wantFragment)
	}
}

func TestNumericSanity(t *testing.T) {
	s := New(nil)

	in := validInput()
	in.Volume = ""
	res := s.Screen(in, sanitized(in), "x")
	require.False(t, res.Passed)
	assert.Equal(t, CodeNumeric, res.Code)
	assert.Contains(t, res.Reason, "volume")

	in = validInput()
	in.High = "99999999999999999999"
	res = s.Screen(in, sanitized(in), "x")
	require.False(t, res.Passed)
	assert.Contains(t, res.Reason, "safe magnitude")
}

func TestRateLimitCheckedFirst(t *testing.T) {
	l := ratelimit.New(time.Minute, 1, 0)
	defer l.Close()
	s := New(l)

	in := validInput()
	require.True(t, s.Screen(in, sanitized(in), "trader-1").Passed)

	in.Open = "<script>alert(1)</script>"
	res := s.Screen(in, sanitized(in), "trader-1")
	require.False(t, res.Passed)
	assert.Equal(t, CodeRateLimited, res.Code, "quota rejection takes precedence over signatures")
}
