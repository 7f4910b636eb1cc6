package chat

import (
	"sync"
	"time"
)

// rateWindow is the trailing window span
const rateWindow = time.Minute

// SlidingWindowLimiter admits at most limit sends per connection within the
// trailing 60 seconds. Windows are created lazily on first send and discarded
// at disconnect via Forget; per-key state means two connections never
// interfere with each other.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string][]time.Time
}

func NewSlidingWindowLimiter(perMinute int) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		limit:   perMinute,
		windows: make(map[string][]time.Time),
	}
}

// Admit reports whether a send at time now is allowed for the connection.
// A rejected send is not enqueued, so hammering the limiter does not extend
// the lockout.
func (l *SlidingWindowLimiter) Admit(connectionID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.windows[connectionID]

	// Entries arrive in non-decreasing time order, so trimming expired
	// entries from the front is sufficient.
	threshold := now.Add(-rateWindow)
	start := 0
	for start < len(window) && !window[start].After(threshold) {
		start++
	}
	window = window[start:]

	if len(window) >= l.limit {
		l.windows[connectionID] = window
		return false
	}

	l.windows[connectionID] = append(window, now)
	return true
}

// Forget drops the window for a connection. Called at disconnect so tracked
// state never outlives the connection.
func (l *SlidingWindowLimiter) Forget(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, connectionID)
}
