package cache

import (
	"context"
	"time"

	"CandleVault/internal/domain/models"
	pkgcache "CandleVault/pkg/cache"
)

// SharedCache stores outcomes in a shared cache backend (Redis or the
// layered memory-over-Redis variant) with server-side expiry. Lookup
// failures degrade to cache misses; the pipeline recomputes and stays
// correct.
type SharedCache struct {
	svc    pkgcache.Service
	prefix string
	ttl    time.Duration
}

// SharedOption configures SharedCache.
type SharedOption func(*SharedCache)

// WithSharedPrefix overrides the cache key prefix.
func WithSharedPrefix(prefix string) SharedOption {
	return func(s *SharedCache) { s.prefix = prefix }
}

// WithSharedTTL overrides the entry expiry.
func WithSharedTTL(ttl time.Duration) SharedOption {
	return func(s *SharedCache) { s.ttl = ttl }
}

func NewSharedCache(svc pkgcache.Service, opts ...SharedOption) *SharedCache {
	s := &SharedCache{
		svc:    svc,
		prefix: "validation:",
		ttl:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SharedCache) Get(fields models.FormInput) (*models.ValidationOutcome, bool) {
	var out models.ValidationOutcome
	if err := s.svc.Get(context.Background(), s.prefix+Key(fields), &out); err != nil {
		return nil, false
	}
	return &out, true
}

func (s *SharedCache) Set(fields models.FormInput, outcome *models.ValidationOutcome) {
	_ = s.svc.Set(context.Background(), s.prefix+Key(fields), outcome, s.ttl)
}

// Close is a no-op; the underlying client is owned by the provider.
func (s *SharedCache) Close() error {
	return nil
}
