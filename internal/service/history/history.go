// Package history keeps per-session undo/redo stacks of committed records.
package history

import (
	"errors"
	"sync"

	"CandleVault/internal/domain/models"
)

// ErrNoOperation reports an undo/redo against an empty stack. It is a normal
// condition, not a fault.
var ErrNoOperation = errors.New("history: no operation to apply")

type stacks struct {
	undo []models.HistoryEntry
	redo []models.HistoryEntry
}

// Manager owns the stacks for every editing session. Depth is bounded:
// overflow drops the oldest undo entry, never the one about to be popped.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*stacks
	maxDepth int
}

// New creates a manager bounded to maxDepth entries per session (50 when
// non-positive).
func New(maxDepth int) *Manager {
	if maxDepth <= 0 {
		maxDepth = 50
	}
	return &Manager{
		sessions: make(map[string]*stacks),
		maxDepth: maxDepth,
	}
}

// Commit pushes a committed record onto the session's undo stack and clears
// the redo stack: new forward work invalidates any branch.
func (m *Manager) Commit(entry models.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[entry.SessionID]
	if s == nil {
		s = &stacks{}
		m.sessions[entry.SessionID] = s
	}
	s.undo = append(s.undo, entry)
	if len(s.undo) > m.maxDepth {
		s.undo = s.undo[1:]
	}
	s.redo = s.redo[:0]
}

// Undo pops the most recent entry, moving it to the redo stack.
func (m *Manager) Undo(sessionID string) (models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[sessionID]
	if s == nil || len(s.undo) == 0 {
		return models.HistoryEntry{}, ErrNoOperation
	}
	entry := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, entry)
	return entry, nil
}

// Redo moves the most recently undone entry back to the undo stack.
func (m *Manager) Redo(sessionID string) (models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[sessionID]
	if s == nil || len(s.redo) == 0 {
		return models.HistoryEntry{}, ErrNoOperation
	}
	entry := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, entry)
	return entry, nil
}

// Clear empties both stacks; used on session switch.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Depth reports the current undo and redo stack sizes.
func (m *Manager) Depth(sessionID string) (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[sessionID]
	if s == nil {
		return 0, 0
	}
	return len(s.undo), len(s.redo)
}
