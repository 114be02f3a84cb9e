package repository

import (
	"sync"
	"time"

	"CandleVault/internal/domain/models"
)

// IndexStats summarizes the index contents.
type IndexStats struct {
	Records       int `json:"records"`
	Sessions      int `json:"sessions"`
	TimestampKeys int `json:"timestamp_keys"`
}

// CandleIndex maintains three read-optimized mappings over the committed
// record set: id -> record (unique), session -> ordered records, and
// timestamp -> record (last write wins on a colliding instant). It is a
// derived view: Rebuild from the source of truth at any time converges with
// incremental maintenance.
type CandleIndex struct {
	mu          sync.RWMutex
	byID        map[string]*models.CandleRecord
	bySession   map[string][]*models.CandleRecord
	byTimestamp map[int64]*models.CandleRecord
}

func NewCandleIndex() *CandleIndex {
	idx := &CandleIndex{}
	idx.reset()
	return idx
}

func (x *CandleIndex) reset() {
	x.byID = make(map[string]*models.CandleRecord)
	x.bySession = make(map[string][]*models.CandleRecord)
	x.byTimestamp = make(map[int64]*models.CandleRecord)
}

// Rebuild clears and repopulates all three mappings atomically.
func (x *CandleIndex) Rebuild(records []*models.CandleRecord) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.reset()
	for _, r := range records {
		x.addLocked(r)
	}
}

// AddOne indexes a single record, keeping the three mappings in lockstep.
func (x *CandleIndex) AddOne(r *models.CandleRecord) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.addLocked(r)
}

func (x *CandleIndex) addLocked(r *models.CandleRecord) {
	if r == nil || r.ID == "" {
		return
	}
	if old, ok := x.byID[r.ID]; ok {
		x.removeLocked(old)
	}
	x.byID[r.ID] = r
	x.bySession[r.SessionID] = append(x.bySession[r.SessionID], r)
	x.byTimestamp[r.Timestamp.UnixNano()] = r
}

// RemoveOne drops a record from all three mappings.
func (x *CandleIndex) RemoveOne(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	r, ok := x.byID[id]
	if !ok {
		return false
	}
	x.removeLocked(r)
	return true
}

func (x *CandleIndex) removeLocked(r *models.CandleRecord) {
	delete(x.byID, r.ID)

	bucket := x.bySession[r.SessionID]
	for i, cur := range bucket {
		if cur.ID == r.ID {
			x.bySession[r.SessionID] = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(x.bySession[r.SessionID]) == 0 {
		delete(x.bySession, r.SessionID)
	}

	// Only drop the timestamp key if it still points at this record; a
	// colliding later write owns the slot.
	key := r.Timestamp.UnixNano()
	if cur, ok := x.byTimestamp[key]; ok && cur.ID == r.ID {
		delete(x.byTimestamp, key)
	}
}

// HasSeq reports whether the session already holds a record at the given
// sequence index.
func (x *CandleIndex) HasSeq(sessionID string, seq int) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, r := range x.bySession[sessionID] {
		if r.SeqIndex == seq {
			return true
		}
	}
	return false
}

// ByID returns the record with the given identifier.
func (x *CandleIndex) ByID(id string) (*models.CandleRecord, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.byID[id]
	return r, ok
}

// BySession returns the session's records in insertion order.
func (x *CandleIndex) BySession(sessionID string) []*models.CandleRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket := x.bySession[sessionID]
	out := make([]*models.CandleRecord, len(bucket))
	copy(out, bucket)
	return out
}

// ByTimestamp returns the record committed at the exact instant.
func (x *CandleIndex) ByTimestamp(ts time.Time) (*models.CandleRecord, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.byTimestamp[ts.UnixNano()]
	return r, ok
}

// ByIndexRange returns the session's records with from <= SeqIndex <= to.
// Linear over the session bucket, which is bounded by one trading session.
func (x *CandleIndex) ByIndexRange(sessionID string, from, to int) []*models.CandleRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []*models.CandleRecord
	for _, r := range x.bySession[sessionID] {
		if r.SeqIndex >= from && r.SeqIndex <= to {
			out = append(out, r)
		}
	}
	return out
}

// LatestN returns up to n of the session's most recent records, oldest
// first.
func (x *CandleIndex) LatestN(sessionID string, n int) []*models.CandleRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket := x.bySession[sessionID]
	if n <= 0 || len(bucket) == 0 {
		return nil
	}
	if n > len(bucket) {
		n = len(bucket)
	}
	out := make([]*models.CandleRecord, n)
	copy(out, bucket[len(bucket)-n:])
	return out
}

// Stats reports the current mapping sizes.
func (x *CandleIndex) Stats() IndexStats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return IndexStats{
		Records:       len(x.byID),
		Sessions:      len(x.bySession),
		TimestampKeys: len(x.byTimestamp),
	}
}
