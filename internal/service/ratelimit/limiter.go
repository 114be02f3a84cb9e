package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Limiter enforces a fixed-window request quota per identifier. State is
// process-wide, keyed by identifier, and lazily garbage-collected by a
// periodic sweep.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*window
	window time.Duration
	quota  int

	sweeper *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// New creates a limiter allowing quota calls per identifier inside each
// window. A sweeper goroutine drops expired entries every sweepInterval;
// pass 0 to disable sweeping (tests).
func New(windowDur time.Duration, quota int, sweepInterval time.Duration) *Limiter {
	l := &Limiter{
		m:      make(map[string]*window),
		window: windowDur,
		quota:  quota,
		done:   make(chan struct{}),
	}
	if sweepInterval > 0 {
		l.sweeper = time.NewTicker(sweepInterval)
		go l.sweep()
	}
	return l
}

// Allow records one call for id and reports whether it is within quota.
// The first call, or the first call after window expiry, resets the counter
// to 1 and always passes.
func (l *Limiter) Allow(id string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.m[id]
	if !ok || now.Sub(w.start) >= l.window {
		l.m[id] = &window{count: 1, start: now}
		return true
	}
	w.count++
	return w.count <= l.quota
}

// Remaining returns how many calls id has left in its current window.
func (l *Limiter) Remaining(id string) int {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.m[id]
	if !ok || now.Sub(w.start) >= l.window {
		return l.quota
	}
	if w.count >= l.quota {
		return 0
	}
	return l.quota - w.count
}

func (l *Limiter) sweep() {
	for {
		select {
		case <-l.sweeper.C:
			now := time.Now()
			l.mu.Lock()
			for id, w := range l.m {
				if now.Sub(w.start) >= l.window {
					delete(l.m, id)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// Close stops the sweeper goroutine.
func (l *Limiter) Close() error {
	l.once.Do(func() {
		if l.sweeper != nil {
			l.sweeper.Stop()
		}
		close(l.done)
	})
	return nil
}
