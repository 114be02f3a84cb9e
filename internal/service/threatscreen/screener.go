// Package threatscreen rejects sanitized input that still carries injection
// signatures, arrives faster than the per-identifier quota, or fails basic
// numeric sanity.
package threatscreen

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"CandleVault/internal/domain/models"
	"CandleVault/internal/service/ratelimit"
)

// Reason codes for rejected input.
const (
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeSignature   = "ERR_THREAT_SIGNATURE"
	CodeNumeric     = "ERR_NOT_NUMERIC"
)

// maxSafeMagnitude is the largest integer magnitude accepted for any field.
const maxSafeMagnitude = float64(1<<53 - 1)

type signature struct {
	name string
	re   *regexp.Regexp
}

// Screening stops at the first matching signature, so order the cheap and
// common ones first.
var signatures = []signature{
	{"script tag", regexp.MustCompile(`(?i)<\s*/?\s*script`)},
	{"event handler attribute", regexp.MustCompile(`(?i)\bon\w+\s*=`)},
	{"iframe tag", regexp.MustCompile(`(?i)<\s*iframe`)},
	{"object tag", regexp.MustCompile(`(?i)<\s*object`)},
	{"embed tag", regexp.MustCompile(`(?i)<\s*embed`)},
	{"data uri", regexp.MustCompile(`(?i)data\s*:\s*text/html`)},
	{"vbscript uri", regexp.MustCompile(`(?i)vbscript\s*:`)},
	{"javascript uri", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"sql select", regexp.MustCompile(`(?i)\bselect\b.+\bfrom\b`)},
	{"sql insert", regexp.MustCompile(`(?i)\binsert\b.+\binto\b`)},
	{"sql update", regexp.MustCompile(`(?i)\bupdate\b.+\bset\b`)},
	{"sql delete", regexp.MustCompile(`(?i)\bdelete\b.+\bfrom\b`)},
	{"sql drop", regexp.MustCompile(`(?i)\bdrop\b\s+\btable\b`)},
	{"sql union", regexp.MustCompile(`(?i)\bunion\b.+\bselect\b`)},
}

// Result reports the screening verdict. Reason is user-facing and only set
// when Passed is false.
type Result struct {
	Passed bool   `json:"passed"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Screener runs the three sub-checks: rate quota, signature match, numeric
// sanity. Failure at any check short-circuits.
type Screener struct {
	limiter *ratelimit.Limiter
}

func New(limiter *ratelimit.Limiter) *Screener {
	return &Screener{limiter: limiter}
}

// Screen checks one submission for the given identifier. Signatures are
// matched against the raw field set, since the sanitizer already strips the
// markup characters a signature needs; numeric sanity runs on the sanitized
// values that later stages will consume.
func (s *Screener) Screen(raw, sanitized models.FormInput, identifier string) Result {
	if s.limiter != nil && !s.limiter.Allow(identifier) {
		return Result{
			Code:   CodeRateLimited,
			Reason: fmt.Sprintf("rate limit exceeded for %q, retry later", identifier),
		}
	}

	rawVals := raw.Values()
	joined := strings.Join(rawVals[:], "|")
	for _, sig := range signatures {
		if sig.re.MatchString(joined) {
			return Result{
				Code:   CodeSignature,
				Reason: fmt.Sprintf("input matches threat signature: %s", sig.name),
			}
		}
	}

	names := [5]string{"open", "high", "low", "close", "volume"}
	sanVals := sanitized.Values()
	for i, v := range sanVals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Result{
				Code:   CodeNumeric,
				Reason: fmt.Sprintf("%s is not a valid number", names[i]),
			}
		}
		if f < 0 {
			return Result{
				Code:   CodeNumeric,
				Reason: fmt.Sprintf("%s must not be negative", names[i]),
			}
		}
		if f > maxSafeMagnitude {
			return Result{
				Code:   CodeNumeric,
				Reason: fmt.Sprintf("%s exceeds the safe magnitude bound", names[i]),
			}
		}
	}

	return Result{Passed: true}
}
