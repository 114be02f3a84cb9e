package usecase

import (
	"context"
	"fmt"

	"CandleVault/internal/domain/models"
	drepo "CandleVault/internal/domain/repository"
	applogger "CandleVault/pkg/logger"
	"CandleVault/pkg/queue"
)

// CandlePersistJob drains queued commits into durable storage. It backs
// the "queue" backend: the committer enqueues, workers land rows here.
type CandlePersistJob struct {
	store  drepo.Storage
	logger *applogger.Logger
}

func NewCandlePersistJob(store drepo.Storage, logger *applogger.Logger) *CandlePersistJob {
	return &CandlePersistJob{store: store, logger: logger}
}

func (j *CandlePersistJob) Name() string { return "candle-persist" }

func (j *CandlePersistJob) Type() string { return MsgCandleCommitted }

func (j *CandlePersistJob) Handle(ctx context.Context, payload interface{}) error {
	rec, err := queue.ParsePayload[models.CandleRecord](payload)
	if err != nil {
		return fmt.Errorf("parse candle payload: %w", err)
	}
	if err := j.store.Store(ctx, rec); err != nil {
		return fmt.Errorf("persist queued candle: %w", err)
	}
	if j.logger != nil {
		j.logger.Debug("queued candle persisted",
			applogger.String("id", rec.ID),
			applogger.String("session", rec.SessionID))
	}
	return nil
}
