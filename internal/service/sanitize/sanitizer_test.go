package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain integer", "1000000", "1000000"},
		{"plain decimal", "1.0850", "1.0850"},
		{"strips letters", "1a2b3c", "123"},
		{"strips markup", "<script>1.5</script>", "1.5"},
		{"multi dot collapsed to first", "1.2.3", "1.23"},
		{"leading minus kept", "-1.5", "-1.5"},
		{"inner minus removed", "1-5", "15"},
		{"multi minus then non-leading removal", "--1.5", "-1.5"},
		{"adversarial rule order", "1-2.3.4-5", "12.345"},
		{"decimal places truncated to 8", "1.1234567890123", "1.12345678"},
		{"length truncated to 20", strings.Repeat("9", 30), strings.Repeat("9", 20)},
		{"empty", "", ""},
		{"only junk", "abc$%^", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"1-2.3.4-5", "--..--", "1.2.3.4.5", "-1.123456789012345678901234",
		"<img onerror=alert(1)>", "1e10", strings.Repeat("1.", 40), "",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "not idempotent for %q", in)
	}
}
