package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"CandleVault/internal/domain/models"
	domrepo "CandleVault/internal/domain/repository"
	internalrepo "CandleVault/internal/repository"
	"CandleVault/internal/service/cache"
	"CandleVault/internal/service/history"
	"CandleVault/internal/service/sanitize"
	"CandleVault/internal/service/threatscreen"
	"CandleVault/internal/service/validation"
	"CandleVault/internal/services/analytics"
	applogger "CandleVault/pkg/logger"
)

// Outcome codes produced by the orchestrator itself.
const (
	// CodeCriticalError marks an outcome produced by the recovery path.
	CodeCriticalError = "ERR_CRITICAL"
	// CodeSequence marks a rejected sequence index.
	CodeSequence = "ERR_SEQUENCE"
)

// Pipeline stage names used for metrics and logging.
const (
	stageScreen   = "screen"
	stageValidate = "validate"
	stageCommit   = "commit"
)

// CommitFunc persists a validated record; a non-nil error aborts the commit.
type CommitFunc func(ctx context.Context, rec *models.CandleRecord) error

// SubmitParams is one candle submission.
type SubmitParams struct {
	SessionID string
	SeqIndex  int
	Timestamp time.Time
	Input     models.FormInput

	// History is the caller-supplied trailing window for contextual rules.
	// When nil the pipeline falls back to the index's session bucket.
	History []*models.CandleRecord

	// Commit overrides the pipeline's configured persistence callback.
	Commit CommitFunc

	// Prediction carries optional annotations onto the committed record.
	Prediction map[string]string
}

// SubmitResult is everything one pipeline run produced.
type SubmitResult struct {
	Outcome    *models.ValidationOutcome  `json:"outcome"`
	Violations []models.BusinessViolation `json:"violations,omitempty"`
	Record     *models.CandleRecord       `json:"record,omitempty"`
	Committed  bool                       `json:"committed"`
	CacheHit   bool                       `json:"cache_hit"`
}

// Pipeline sequences sanitization, screening, validation and analysis, and
// applies the index/cache/history side effects around the commit callback.
// It is the sole public entry point of the core.
//
// One in-flight commit per session: the caller must not issue concurrent
// Submits against the same session identifier.
type Pipeline struct {
	screener  *threatscreen.Screener
	validator *validation.Validator
	analyzer  *analytics.Analyzer
	suggester *analytics.Suggester
	vcache    cache.ValidationCache
	index     *internalrepo.CandleIndex
	history   *history.Manager
	commit    CommitFunc
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

// NewPipeline wires the pipeline. commit may be nil when every caller
// supplies its own callback; metrics and logger may be nil in tests.
func NewPipeline(
	screener *threatscreen.Screener,
	validator *validation.Validator,
	analyzer *analytics.Analyzer,
	suggester *analytics.Suggester,
	vcache cache.ValidationCache,
	index *internalrepo.CandleIndex,
	hist *history.Manager,
	commit CommitFunc,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *Pipeline {
	return &Pipeline{
		screener:  screener,
		validator: validator,
		analyzer:  analyzer,
		suggester: suggester,
		vcache:    vcache,
		index:     index,
		history:   hist,
		commit:    commit,
		metrics:   metrics,
		logger:    logger,
	}
}

// Index exposes the read model for query callers.
func (p *Pipeline) Index() *internalrepo.CandleIndex { return p.index }

// Submit runs the full pipeline for one candle. The returned error is only
// ever a commit-callback failure; every validation problem is reported
// inside the result so the caller always receives an outcome.
func (p *Pipeline) Submit(ctx context.Context, params SubmitParams) (res *SubmitResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			// Contract: the caller always gets an outcome, never a panic.
			out := &models.ValidationOutcome{}
			out.AddError("", CodeCriticalError, "internal validation fault, record rejected")
			res = &SubmitResult{Outcome: out}
			err = nil
			if p.logger != nil {
				p.logger.Error("pipeline panic recovered", applogger.Any("panic", r))
			}
		}
		if p.metrics != nil {
			p.metrics.RecordLatency("submit", time.Since(start).Seconds())
		}
	}()

	sanitized := sanitizeInput(params.Input)

	if p.screener != nil {
		if screen := p.screener.Screen(params.Input, sanitized, params.SessionID); !screen.Passed {
			p.reject(stageScreen)
			if p.logger != nil {
				p.logger.Warn("submission screened out",
					applogger.String("session", params.SessionID),
					applogger.String("code", screen.Code),
					applogger.String("reason", screen.Reason))
			}
			out := &models.ValidationOutcome{}
			out.AddError("", screen.Code, screen.Reason)
			return &SubmitResult{Outcome: out}, nil
		}
	}

	if out := p.checkSequence(params.SessionID, params.SeqIndex); out != nil {
		p.reject(stageValidate)
		return &SubmitResult{Outcome: out}, nil
	}

	outcome, parsed, hit := p.validateCached(params.Input, sanitized)
	if !outcome.Valid {
		p.reject(stageValidate)
		return &SubmitResult{Outcome: outcome, CacheHit: hit}, nil
	}

	rec := &models.CandleRecord{
		ID:         uuid.NewString(),
		SessionID:  params.SessionID,
		SeqIndex:   params.SeqIndex,
		Open:       parsed.Open,
		High:       parsed.High,
		Low:        parsed.Low,
		Close:      parsed.Close,
		Volume:     parsed.Volume,
		Timestamp:  params.Timestamp,
		Spread:     parsed.High.Sub(parsed.Low),
		Prediction: params.Prediction,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	window := params.History
	if window == nil && p.index != nil && p.analyzer != nil {
		window = p.index.BySession(params.SessionID)
	}
	var violations []models.BusinessViolation
	if p.analyzer != nil {
		violations = p.analyzer.Analyze(rec, window)
	}

	commit := params.Commit
	if commit == nil {
		commit = p.commit
	}
	if commit != nil {
		if cerr := commit(ctx, rec); cerr != nil {
			// Persistence failed: no index update, no history push. The
			// validated record is discarded and the caller retries whole.
			p.reject(stageCommit)
			if p.logger != nil {
				p.logger.Error("commit callback failed",
					applogger.String("session", params.SessionID),
					applogger.Error(cerr))
			}
			return &SubmitResult{Outcome: outcome, Violations: violations, CacheHit: hit},
				fmt.Errorf("commit candle: %w", cerr)
		}
	}

	if p.index != nil {
		p.index.AddOne(rec)
	}
	if p.history != nil {
		p.history.Commit(models.HistoryEntry{
			Record:    rec,
			Op:        models.HistoryOpAdd,
			SessionID: params.SessionID,
			At:        time.Now(),
		})
	}
	if p.metrics != nil {
		p.metrics.RecordCommit("pipeline", params.SessionID)
	}
	if p.logger != nil {
		p.logger.Debug("candle committed",
			applogger.String("session", params.SessionID),
			applogger.String("id", rec.ID),
			applogger.Int("violations", len(violations)))
	}

	return &SubmitResult{
		Outcome:    outcome,
		Violations: violations,
		Record:     rec,
		Committed:  true,
		CacheHit:   hit,
	}, nil
}

// SubmitBatch runs rows sequentially, one result per row. A commit failure
// stops the batch; earlier rows stay committed.
func (p *Pipeline) SubmitBatch(ctx context.Context, rows []SubmitParams) ([]*SubmitResult, error) {
	out := make([]*SubmitResult, 0, len(rows))
	for i, row := range rows {
		res, err := p.Submit(ctx, row)
		out = append(out, res)
		if err != nil {
			return out, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return out, nil
}

// Suggest returns ranked autofill candidates; read-only.
func (p *Pipeline) Suggest(field validation.Field, partial models.FormInput, sessionID string, window []*models.CandleRecord) []models.Suggestion {
	if p.suggester == nil {
		return nil
	}
	if window == nil && p.index != nil {
		window = p.index.BySession(sessionID)
	}
	return p.suggester.Suggest(field, partial, window)
}

// Undo pops the session's most recent commit, removing it from the index.
func (p *Pipeline) Undo(sessionID string) (*models.CandleRecord, error) {
	entry, err := p.history.Undo(sessionID)
	if err != nil {
		return nil, err
	}
	if p.index != nil && entry.Record != nil {
		p.index.RemoveOne(entry.Record.ID)
	}
	return entry.Record, nil
}

// Redo re-applies the session's most recently undone commit.
func (p *Pipeline) Redo(sessionID string) (*models.CandleRecord, error) {
	entry, err := p.history.Redo(sessionID)
	if err != nil {
		return nil, err
	}
	if p.index != nil && entry.Record != nil {
		p.index.AddOne(entry.Record)
	}
	return entry.Record, nil
}

// checkSequence enforces the per-session sequence contract for every
// caller of Submit, not only the HTTP layer: non-negative and not yet
// committed in the session.
func (p *Pipeline) checkSequence(sessionID string, seq int) *models.ValidationOutcome {
	if seq < 0 {
		out := &models.ValidationOutcome{}
		out.AddError("seq_index", CodeSequence, fmt.Sprintf("sequence index %d is negative", seq))
		return out
	}
	if p.index != nil && p.index.HasSeq(sessionID, seq) {
		out := &models.ValidationOutcome{}
		out.AddError("seq_index", CodeSequence,
			fmt.Sprintf("sequence index %d already committed in session", seq))
		return out
	}
	return nil
}

// validateCached consults the cache, keyed on the raw field tuple, before
// running the structural validator on the sanitized one. A cached invalid
// outcome still skips recompute; a cached valid outcome needs a reparse for
// the decimal values, which the validator provides.
func (p *Pipeline) validateCached(raw, sanitized models.FormInput) (*models.ValidationOutcome, *validation.Parsed, bool) {
	if p.vcache != nil {
		if out, ok := p.vcache.Get(raw); ok {
			if p.metrics != nil {
				p.metrics.RecordCacheLookup(true)
			}
			if !out.Valid {
				return out, nil, true
			}
			_, parsed := p.validator.Validate(sanitized)
			return out, parsed, true
		}
		if p.metrics != nil {
			p.metrics.RecordCacheLookup(false)
		}
	}

	out, parsed := p.validator.Validate(sanitized)
	if p.vcache != nil {
		p.vcache.Set(raw, out)
	}
	return out, parsed, false
}

func (p *Pipeline) reject(stage string) {
	if p.metrics != nil {
		p.metrics.RecordRejection(stage)
	}
}

func sanitizeInput(in models.FormInput) models.FormInput {
	return models.FormInput{
		Open:   sanitize.Sanitize(in.Open),
		High:   sanitize.Sanitize(in.High),
		Low:    sanitize.Sanitize(in.Low),
		Close:  sanitize.Sanitize(in.Close),
		Volume: sanitize.Sanitize(in.Volume),
	}
}
