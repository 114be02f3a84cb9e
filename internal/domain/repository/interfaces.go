package repository

import (
	"context"
	"time"

	"CandleVault/internal/domain/models"
)

// Publisher pushes committed candles to downstream analytics consumers.
type Publisher interface {
	Publish(ctx context.Context, rec *models.CandleRecord) error
	PublishBatch(ctx context.Context, recs []*models.CandleRecord) error
	Close() error
}

// Storage persists committed candles durably.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, rec *models.CandleRecord) error
	StoreBatch(ctx context.Context, recs []*models.CandleRecord) error
	Query(ctx context.Context, sessionID string, from, to time.Time, limit int) ([]*models.CandleRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records pipeline events.
type Metrics interface {
	RecordCommit(backend, sessionID string)
	RecordRejection(stage string)
	RecordCacheLookup(hit bool)
	RecordLatency(op string, seconds float64)
}
