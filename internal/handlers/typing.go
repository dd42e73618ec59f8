package handlers

import (
	"sync"
	"time"
)

// typingThrottle limits typing events to one per sender per interval, so
// held-down keys do not flood the receiver.
type typingThrottle struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

func newTypingThrottle(interval time.Duration) *typingThrottle {
	return &typingThrottle{
		last:     make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// allow reports whether the sender may emit a typing event now, and
// records the emit when it may.
func (t *typingThrottle) allow(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[userID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[userID] = now
	return true
}

// forget drops the sender's entry. Called when their last connection
// closes, so the map does not grow with every user who ever typed.
func (t *typingThrottle) forget(userID string) {
	t.mu.Lock()
	delete(t.last, userID)
	t.mu.Unlock()
}

func (t *typingThrottle) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
