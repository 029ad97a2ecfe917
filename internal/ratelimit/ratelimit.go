package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow is a per-key fixed-window counter. A limit of zero disables it.
// Expired entries are swept at most once per window so the key map stays
// bounded by the set of clients active in the last window.
type FixedWindow struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	byKey     map[string]windowState
	lastSweep time.Time
}

type windowState struct {
	start time.Time
	count int
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:  limit,
		window: window,
		byKey:  map[string]windowState{},
	}
}

func (l *FixedWindow) Allow(key string, now time.Time) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	if key == "" {
		key = "anonymous"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	cur := l.byKey[key]
	if cur.start.IsZero() || now.Sub(cur.start) >= l.window {
		l.byKey[key] = windowState{start: now, count: 1}
		return true
	}
	if cur.count >= l.limit {
		return false
	}
	cur.count++
	l.byKey[key] = cur
	return true
}

// sweep drops entries whose window has passed. Caller holds the lock.
func (l *FixedWindow) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, state := range l.byKey {
		if now.Sub(state.start) >= l.window {
			delete(l.byKey, key)
		}
	}
	l.lastSweep = now
}
