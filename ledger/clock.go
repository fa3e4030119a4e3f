package ledger

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK - Timestamp source for history entries
// =============================================================================

// Clock supplies the server-assigned timestamp recorded on each
// HistoryEntry. Implementations must be monotonically non-decreasing per
// process so that an entity's log replays in write order.
type Clock interface {
	Now() time.Time
}

// SystemClock wraps time.Now and clamps to non-decreasing. Wall clocks can
// step backwards (NTP); the history ordering invariant cannot.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
}

func NewSystemClock() *SystemClock { return &SystemClock{} }

func (c *SystemClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}

// ManualClock is a deterministic clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UTC()}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
