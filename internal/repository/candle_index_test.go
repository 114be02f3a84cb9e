package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
)

var t0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func rec(session string, seq int, offset time.Duration) *models.CandleRecord {
	return &models.CandleRecord{
		ID:        fmt.Sprintf("%s-%d", session, seq),
		SessionID: session,
		SeqIndex:  seq,
		Open:      decimal.NewFromInt(100),
		High:      decimal.NewFromInt(101),
		Low:       decimal.NewFromInt(99),
		Close:     decimal.NewFromInt(100),
		Volume:    decimal.NewFromInt(5000),
		Timestamp: t0.Add(offset),
	}
}

func TestAddAndLookup(t *testing.T) {
	x := NewCandleIndex()
	r := rec("s1", 0, 0)
	x.AddOne(r)

	got, ok := x.ByID("s1-0")
	require.True(t, ok)
	assert.Same(t, r, got)

	got, ok = x.ByTimestamp(t0)
	require.True(t, ok)
	assert.Same(t, r, got)

	assert.Len(t, x.BySession("s1"), 1)
	assert.Empty(t, x.BySession("other"))
}

func TestHasSeq(t *testing.T) {
	x := NewCandleIndex()
	x.AddOne(rec("s1", 3, 0))

	assert.True(t, x.HasSeq("s1", 3))
	assert.False(t, x.HasSeq("s1", 4))
	assert.False(t, x.HasSeq("s2", 3))

	require.True(t, x.RemoveOne("s1-3"))
	assert.False(t, x.HasSeq("s1", 3), "removal frees the index")
}

func TestRemoveKeepsMappingsConsistent(t *testing.T) {
	x := NewCandleIndex()
	a := rec("s1", 0, 0)
	b := rec("s1", 1, time.Minute)
	x.AddOne(a)
	x.AddOne(b)

	require.True(t, x.RemoveOne("s1-0"))
	assert.False(t, x.RemoveOne("s1-0"), "double remove is a no-op")

	_, ok := x.ByID("s1-0")
	assert.False(t, ok)
	_, ok = x.ByTimestamp(t0)
	assert.False(t, ok)
	require.Len(t, x.BySession("s1"), 1)
	assert.Equal(t, "s1-1", x.BySession("s1")[0].ID)

	stats := x.Stats()
	assert.Equal(t, IndexStats{Records: 1, Sessions: 1, TimestampKeys: 1}, stats)
}

func TestTimestampCollisionLastWriteWins(t *testing.T) {
	x := NewCandleIndex()
	a := rec("s1", 0, 0)
	b := rec("s1", 1, 0) // same instant
	x.AddOne(a)
	x.AddOne(b)

	got, ok := x.ByTimestamp(t0)
	require.True(t, ok)
	assert.Equal(t, "s1-1", got.ID)

	// Removing the loser must not disturb the winner's timestamp slot.
	x.RemoveOne("s1-0")
	got, ok = x.ByTimestamp(t0)
	require.True(t, ok)
	assert.Equal(t, "s1-1", got.ID)
}

func TestRangeAndLatestQueries(t *testing.T) {
	x := NewCandleIndex()
	for i := 0; i < 10; i++ {
		x.AddOne(rec("s1", i, time.Duration(i)*time.Minute))
	}

	ranged := x.ByIndexRange("s1", 3, 5)
	require.Len(t, ranged, 3)
	assert.Equal(t, 3, ranged[0].SeqIndex)
	assert.Equal(t, 5, ranged[2].SeqIndex)

	latest := x.LatestN("s1", 3)
	require.Len(t, latest, 3)
	assert.Equal(t, 7, latest[0].SeqIndex)
	assert.Equal(t, 9, latest[2].SeqIndex)

	assert.Len(t, x.LatestN("s1", 100), 10)
	assert.Nil(t, x.LatestN("s1", 0))
}

func TestRebuildConvergesWithIncremental(t *testing.T) {
	all := make([]*models.CandleRecord, 0, 8)
	for i := 0; i < 8; i++ {
		session := "s1"
		if i%2 == 1 {
			session = "s2"
		}
		all = append(all, rec(session, i, time.Duration(i)*time.Minute))
	}

	// Incremental: add everything, remove two, add one replacement.
	inc := NewCandleIndex()
	for _, r := range all {
		inc.AddOne(r)
	}
	inc.RemoveOne("s1-2")
	inc.RemoveOne("s2-5")
	repl := rec("s1", 2, 2*time.Minute)
	inc.AddOne(repl)

	// Direct rebuild of the final record set.
	final := make([]*models.CandleRecord, 0, len(all)-1)
	for _, r := range all {
		if r.ID == "s1-2" || r.ID == "s2-5" {
			continue
		}
		final = append(final, r)
	}
	final = append(final, repl)

	direct := NewCandleIndex()
	direct.Rebuild(final)

	assert.Equal(t, direct.Stats(), inc.Stats())
	for _, r := range final {
		a, aok := inc.ByID(r.ID)
		b, bok := direct.ByID(r.ID)
		require.True(t, aok)
		require.True(t, bok)
		assert.Equal(t, b.ID, a.ID)
	}
	for _, session := range []string{"s1", "s2"} {
		ai := inc.BySession(session)
		bi := direct.BySession(session)
		require.Equal(t, len(bi), len(ai), "session %s", session)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	records := []*models.CandleRecord{rec("s1", 0, 0), rec("s1", 1, time.Minute)}
	x := NewCandleIndex()
	x.Rebuild(records)
	first := x.Stats()
	x.Rebuild(records)
	assert.Equal(t, first, x.Stats())
}
