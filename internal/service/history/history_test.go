package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
)

func entry(session, id string) models.HistoryEntry {
	return models.HistoryEntry{
		Record:    &models.CandleRecord{ID: id, SessionID: session},
		Op:        models.HistoryOpAdd,
		SessionID: session,
		At:        time.Now(),
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := New(50)
	m.Commit(entry("s1", "a"))
	m.Commit(entry("s1", "b"))

	got, err := m.Undo("s1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Record.ID)

	got, err = m.Redo("s1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Record.ID)

	undo, redo := m.Depth("s1")
	assert.Equal(t, 2, undo)
	assert.Equal(t, 0, redo)
}

func TestEmptyStacksReturnNoOperation(t *testing.T) {
	m := New(50)

	_, err := m.Undo("s1")
	assert.ErrorIs(t, err, ErrNoOperation)
	_, err = m.Redo("s1")
	assert.ErrorIs(t, err, ErrNoOperation)
}

func TestLinearHistoryInvalidatesRedo(t *testing.T) {
	m := New(50)
	m.Commit(entry("s1", "A"))
	m.Commit(entry("s1", "B"))

	_, err := m.Undo("s1")
	require.NoError(t, err)

	m.Commit(entry("s1", "C"))

	_, redo := m.Depth("s1")
	assert.Equal(t, 0, redo, "commit must clear the redo stack")

	got, err := m.Undo("s1")
	require.NoError(t, err)
	assert.Equal(t, "C", got.Record.ID, "undo after the new commit returns C, not B")
}

func TestDepthBoundDropsOldest(t *testing.T) {
	m := New(3)
	for i := 0; i < 5; i++ {
		m.Commit(entry("s1", fmt.Sprintf("r%d", i)))
	}
	undo, _ := m.Depth("s1")
	require.Equal(t, 3, undo)

	// The newest entries survive; r0 and r1 were dropped silently.
	for _, want := range []string{"r4", "r3", "r2"} {
		got, err := m.Undo("s1")
		require.NoError(t, err)
		assert.Equal(t, want, got.Record.ID)
	}
	_, err := m.Undo("s1")
	assert.ErrorIs(t, err, ErrNoOperation)
}

func TestSessionsIsolated(t *testing.T) {
	m := New(50)
	m.Commit(entry("s1", "a"))
	m.Commit(entry("s2", "b"))

	got, err := m.Undo("s2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Record.ID)

	undo, _ := m.Depth("s1")
	assert.Equal(t, 1, undo)
}

func TestClear(t *testing.T) {
	m := New(50)
	m.Commit(entry("s1", "a"))
	_, _ = m.Undo("s1")
	m.Clear("s1")

	undo, redo := m.Depth("s1")
	assert.Zero(t, undo)
	assert.Zero(t, redo)
}
