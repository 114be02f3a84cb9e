package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
	"CandleVault/internal/repository"
	"CandleVault/internal/service/cache"
	"CandleVault/internal/service/history"
	"CandleVault/internal/service/ratelimit"
	"CandleVault/internal/service/threatscreen"
	"CandleVault/internal/service/validation"
	"CandleVault/internal/services/analytics"
)

func newTestPipeline(t *testing.T, commit CommitFunc) *Pipeline {
	t.Helper()
	limiter := ratelimit.New(time.Minute, 1000, 0)
	t.Cleanup(func() { limiter.Close() })
	return NewPipeline(
		threatscreen.New(limiter),
		validation.New(validation.DefaultConfig()),
		analytics.NewAnalyzer(analytics.DefaultAnalyzerConfig()),
		analytics.NewSuggester(analytics.DefaultAnalyzerConfig()),
		cache.NewMemoryCache(),
		repository.NewCandleIndex(),
		history.New(50),
		commit,
		nil,
		nil,
	)
}

func validInput() models.FormInput {
	return models.FormInput{Open: "100", High: "105", Low: "99", Close: "103", Volume: "5000"}
}

func TestSubmitValidCandle(t *testing.T) {
	p := newTestPipeline(t, nil)

	res, err := p.Submit(context.Background(), SubmitParams{
		SessionID: "s1",
		SeqIndex:  0,
		Input:     validInput(),
	})
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.NotNil(t, res.Record)

	assert.True(t, res.Outcome.Valid)
	assert.NotEmpty(t, res.Record.ID)
	assert.Equal(t, "s1", res.Record.SessionID)
	assert.Equal(t, "6", res.Record.Spread.String())
	assert.False(t, res.Record.Timestamp.IsZero())

	got, ok := p.Index().ByID(res.Record.ID)
	require.True(t, ok)
	assert.Equal(t, res.Record, got)

	undo, redo := p.history.Depth("s1")
	assert.Equal(t, 1, undo)
	assert.Equal(t, 0, redo)
}

func TestSubmitSanitizesBeforeValidation(t *testing.T) {
	p := newTestPipeline(t, nil)

	res, err := p.Submit(context.Background(), SubmitParams{
		SessionID: "s1",
		Input: models.FormInput{
			Open: " 10$0 ", High: "105abc", Low: "99", Close: "103", Volume: "5,000",
		},
	})
	require.NoError(t, err)
	require.True(t, res.Committed)
	assert.Equal(t, "100", res.Record.Open.String())
	assert.Equal(t, "5000", res.Record.Volume.String())
}

func TestSubmitRejectsThreatSignature(t *testing.T) {
	p := newTestPipeline(t, nil)

	in := validInput()
	in.Open = "<script>alert(1)</script>"
	res, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", Input: in})
	require.NoError(t, err)

	assert.False(t, res.Committed)
	assert.False(t, res.Outcome.Valid)
	require.Len(t, res.Outcome.Errors, 1)
	assert.Equal(t, threatscreen.CodeSignature, res.Outcome.Errors[0].Code)
	assert.Empty(t, p.Index().BySession("s1"))
}

func TestSubmitRejectsStructuralError(t *testing.T) {
	p := newTestPipeline(t, nil)

	in := validInput()
	in.High = "98" // below both open and close
	res, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", Input: in})
	require.NoError(t, err)

	assert.False(t, res.Committed)
	assert.False(t, res.Outcome.Valid)
	assert.Nil(t, res.Record)
	assert.Empty(t, p.Index().BySession("s1"))
	u, _ := p.history.Depth("s1")
	assert.Zero(t, u)
}

func TestSubmitRejectsNegativeSeqIndex(t *testing.T) {
	p := newTestPipeline(t, nil)

	res, err := p.Submit(context.Background(), SubmitParams{
		SessionID: "s1",
		SeqIndex:  -5,
		Input:     validInput(),
	})
	require.NoError(t, err)

	assert.False(t, res.Committed)
	assert.Nil(t, res.Record)
	require.Len(t, res.Outcome.Errors, 1)
	assert.Equal(t, CodeSequence, res.Outcome.Errors[0].Code)
	assert.Empty(t, p.Index().BySession("s1"))
	u, _ := p.history.Depth("s1")
	assert.Zero(t, u)
}

func TestSubmitRejectsDuplicateSeqIndex(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	first, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 1, Input: validInput()})
	require.NoError(t, err)
	require.True(t, first.Committed)

	second, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 1, Input: validInput()})
	require.NoError(t, err)
	assert.False(t, second.Committed)
	require.Len(t, second.Outcome.Errors, 1)
	assert.Equal(t, CodeSequence, second.Outcome.Errors[0].Code)
	assert.Len(t, p.Index().BySession("s1"), 1)

	// The same index is free in another session.
	other, err := p.Submit(ctx, SubmitParams{SessionID: "s2", SeqIndex: 1, Input: validInput()})
	require.NoError(t, err)
	assert.True(t, other.Committed)
}

func TestUndoFreesSeqIndex(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 0, Input: validInput()})
	require.NoError(t, err)
	_, err = p.Undo("s1")
	require.NoError(t, err)

	res, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 0, Input: validInput()})
	require.NoError(t, err)
	assert.True(t, res.Committed)
}

func TestSubmitCacheHitOnRepeat(t *testing.T) {
	p := newTestPipeline(t, nil)

	first, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", Input: validInput()})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", SeqIndex: 1, Input: validInput()})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.True(t, second.Committed)
	assert.NotEqual(t, first.Record.ID, second.Record.ID)
}

func TestCacheKeyedOnRawFields(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 0, Input: validInput()})
	require.NoError(t, err)

	// Same value after sanitization, different raw tuple: no shared entry.
	variant := validInput()
	variant.Open = " 100 "
	res, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 1, Input: variant})
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.True(t, res.Committed)
}

func TestSubmitCommitFailureLeavesNoTrace(t *testing.T) {
	boom := errors.New("backend down")
	p := newTestPipeline(t, func(ctx context.Context, rec *models.CandleRecord) error {
		return boom
	})

	res, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", Input: validInput()})
	require.ErrorIs(t, err, boom)

	assert.False(t, res.Committed)
	assert.True(t, res.Outcome.Valid)
	assert.Empty(t, p.Index().BySession("s1"))
	u, _ := p.history.Depth("s1")
	assert.Zero(t, u)
}

func TestSubmitPerCallCommitOverride(t *testing.T) {
	defaultCalls := 0
	p := newTestPipeline(t, func(ctx context.Context, rec *models.CandleRecord) error {
		defaultCalls++
		return nil
	})

	overrideCalls := 0
	_, err := p.Submit(context.Background(), SubmitParams{
		SessionID: "s1",
		Input:     validInput(),
		Commit: func(ctx context.Context, rec *models.CandleRecord) error {
			overrideCalls++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, overrideCalls)
	assert.Zero(t, defaultCalls)
}

func TestSubmitViolationsAreAdvisory(t *testing.T) {
	p := newTestPipeline(t, nil)

	// Seed a window so the candidate's volume stands out as abnormal.
	for i := 0; i < 5; i++ {
		in := validInput()
		in.Volume = "1000"
		res, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", SeqIndex: i, Input: in})
		require.NoError(t, err)
		require.True(t, res.Committed)
	}

	in := validInput()
	in.Volume = "900000"
	res, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", SeqIndex: 5, Input: in})
	require.NoError(t, err)

	assert.True(t, res.Committed, "violations must not block the commit")
	var rules []string
	for _, v := range res.Violations {
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, analytics.RuleVolume)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	p := newTestPipeline(t, nil)

	res, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", Input: validInput()})
	require.NoError(t, err)
	id := res.Record.ID

	undone, err := p.Undo("s1")
	require.NoError(t, err)
	assert.Equal(t, id, undone.ID)
	_, ok := p.Index().ByID(id)
	assert.False(t, ok)

	redone, err := p.Redo("s1")
	require.NoError(t, err)
	assert.Equal(t, id, redone.ID)
	_, ok = p.Index().ByID(id)
	assert.True(t, ok)
}

func TestUndoEmptySession(t *testing.T) {
	p := newTestPipeline(t, nil)
	_, err := p.Undo("empty")
	assert.ErrorIs(t, err, history.ErrNoOperation)
}

func TestNewCommitClearsRedo(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Submit(ctx, SubmitParams{SessionID: "s1", Input: validInput()})
	require.NoError(t, err)
	_, err = p.Undo("s1")
	require.NoError(t, err)

	in := validInput()
	in.Close = "101"
	_, err = p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 1, Input: in})
	require.NoError(t, err)

	_, err = p.Redo("s1")
	assert.ErrorIs(t, err, history.ErrNoOperation)
}

func TestSubmitBatchStopsOnCommitFailure(t *testing.T) {
	boom := errors.New("backend down")
	calls := 0
	p := newTestPipeline(t, func(ctx context.Context, rec *models.CandleRecord) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	rows := []SubmitParams{
		{SessionID: "s1", SeqIndex: 0, Input: validInput()},
		{SessionID: "s1", SeqIndex: 1, Input: models.FormInput{Open: "200", High: "210", Low: "190", Close: "205", Volume: "100"}},
		{SessionID: "s1", SeqIndex: 2, Input: validInput()},
	}
	results, err := p.SubmitBatch(context.Background(), rows)
	require.ErrorIs(t, err, boom)
	assert.Len(t, results, 2, "third row never runs")
	assert.True(t, results[0].Committed)
	assert.False(t, results[1].Committed)
}

func TestSuggestUsesSessionWindow(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: i, Input: validInput()})
		require.NoError(t, err)
	}

	sugg := p.Suggest(validation.FieldOpen, models.FormInput{}, "s1", nil)
	require.NotEmpty(t, sugg)
	// Previous close is the top suggestion for open.
	assert.Equal(t, "103", sugg[0].Value.String())
}

func TestSubmitRateLimited(t *testing.T) {
	limiter := ratelimit.New(time.Minute, 2, 0)
	t.Cleanup(func() { limiter.Close() })
	p := NewPipeline(
		threatscreen.New(limiter),
		validation.New(validation.DefaultConfig()),
		nil, nil,
		cache.NewMemoryCache(),
		repository.NewCandleIndex(),
		history.New(50),
		nil, nil, nil,
	)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: i, Input: validInput()})
		require.NoError(t, err)
		require.True(t, res.Committed)
	}

	res, err := p.Submit(ctx, SubmitParams{SessionID: "s1", SeqIndex: 2, Input: validInput()})
	require.NoError(t, err)
	assert.False(t, res.Committed)
	require.Len(t, res.Outcome.Errors, 1)
	assert.Equal(t, threatscreen.CodeRateLimited, res.Outcome.Errors[0].Code)
}
