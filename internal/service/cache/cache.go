// Package cache memoizes validation outcomes keyed by the exact raw field
// tuple. The cache is purely an optimization: removing it changes recompute
// cost, never outcomes.
package cache

import (
	"strings"

	"CandleVault/internal/domain/models"
)

// ValidationCache is the minimal API the pipeline needs. The memory variant
// enforces the composite-score eviction policy; the Redis variant delegates
// expiry to the server and suits multi-instance deployments.
type ValidationCache interface {
	Get(fields models.FormInput) (*models.ValidationOutcome, bool)
	Set(fields models.FormInput, outcome *models.ValidationOutcome)
	Close() error
}

// Key joins the five raw field strings into the cache key.
func Key(fields models.FormInput) string {
	vals := fields.Values()
	return strings.Join(vals[:], "|")
}
