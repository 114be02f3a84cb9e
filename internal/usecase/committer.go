package usecase

import (
	"context"
	"fmt"
	"time"

	"CandleVault/internal/domain/models"
	drepo "CandleVault/internal/domain/repository"
	"CandleVault/pkg/queue"
)

// Supported commit backends.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendQueue      = "queue"
	BackendNone       = "none"
)

// MsgCandleCommitted is the queue message type for async persistence.
const MsgCandleCommitted = "candle.committed"

// CandleCommitter routes committed candles to the configured backend.
type CandleCommitter struct {
	pub     drepo.Publisher
	store   drepo.Storage
	queue   queue.QueueService
	metrics drepo.Metrics
	backend string
}

// NewCandleCommitter creates a new CandleCommitter instance.
func NewCandleCommitter(
	pub drepo.Publisher,
	store drepo.Storage,
	q queue.QueueService,
	metrics drepo.Metrics,
	backend string,
) *CandleCommitter {
	return &CandleCommitter{
		pub:     pub,
		store:   store,
		queue:   q,
		metrics: metrics,
		backend: backend,
	}
}

// Commit persists a single candle to the configured backend.
func (c *CandleCommitter) Commit(ctx context.Context, rec *models.CandleRecord) error {
	if rec == nil {
		return fmt.Errorf("candle is nil")
	}

	start := time.Now()
	var err error

	switch c.backend {
	case BackendKafka:
		err = c.pub.Publish(ctx, rec)
	case BackendClickHouse:
		err = c.store.Store(ctx, rec)
	case BackendQueue:
		err = c.queue.PublishMessage(ctx, MsgCandleCommitted, rec)
	case BackendNone:
		// in-memory only, the index is the system of record
	default:
		err = fmt.Errorf("unknown backend: %s", c.backend)
	}

	if err != nil {
		return fmt.Errorf("commit candle: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordCommit(c.backend, rec.SessionID)
		c.metrics.RecordLatency("backend_commit", time.Since(start).Seconds())
	}

	return nil
}

// CommitBatch persists multiple candles in a single backend call.
func (c *CandleCommitter) CommitBatch(ctx context.Context, recs []*models.CandleRecord) error {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch c.backend {
	case BackendKafka:
		err = c.pub.PublishBatch(ctx, recs)
	case BackendClickHouse:
		err = c.store.StoreBatch(ctx, recs)
	case BackendQueue:
		for _, rec := range recs {
			if err = c.queue.PublishMessage(ctx, MsgCandleCommitted, rec); err != nil {
				break
			}
		}
	case BackendNone:
	default:
		err = fmt.Errorf("unknown backend: %s", c.backend)
	}

	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if c.metrics != nil {
		for _, r := range recs {
			c.metrics.RecordCommit(c.backend, r.SessionID)
		}
		c.metrics.RecordLatency("backend_commit_batch", time.Since(start).Seconds())
	}

	return nil
}

// CommitFunc adapts the committer to the pipeline's callback shape.
func (c *CandleCommitter) CommitFunc() CommitFunc {
	return c.Commit
}

// Close shuts down whichever backend is active. The queue backend is
// owned by the application lifecycle, not the committer.
func (c *CandleCommitter) Close() error {
	switch c.backend {
	case BackendKafka:
		if c.pub != nil {
			return c.pub.Close()
		}
	case BackendClickHouse:
		if c.store != nil {
			return c.store.Close()
		}
	}
	return nil
}
