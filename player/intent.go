package player

import (
	"sync"
	"time"
)

// IntentClock records the timestamps of the most recent user actions. It is
// process-local, monotonically updated, and used only for recency checks:
// the coordinator debounces engine callbacks against recent toggles, and
// the autoscroll controller suppresses scrolling after seeks and drags.
type IntentClock struct {
	mu         sync.RWMutex
	now        func() time.Time
	lastSeek   time.Time
	lastScroll time.Time
	lastToggle time.Time
}

// NewIntentClock creates an intent clock using wall time.
func NewIntentClock() *IntentClock {
	return &IntentClock{now: time.Now}
}

// NewIntentClockAt creates an intent clock with an injectable time source.
func NewIntentClockAt(now func() time.Time) *IntentClock {
	if now == nil {
		now = time.Now
	}
	return &IntentClock{now: now}
}

// MarkSeek records a user-initiated seek.
func (c *IntentClock) MarkSeek() {
	c.mu.Lock()
	c.lastSeek = c.now()
	c.mu.Unlock()
}

// MarkScroll records a user-initiated scroll or drag.
func (c *IntentClock) MarkScroll() {
	c.mu.Lock()
	c.lastScroll = c.now()
	c.mu.Unlock()
}

// MarkToggle records a user-initiated play/pause toggle.
func (c *IntentClock) MarkToggle() {
	c.mu.Lock()
	c.lastToggle = c.now()
	c.mu.Unlock()
}

// SeekWithin reports whether a seek happened within the window.
func (c *IntentClock) SeekWithin(window time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastSeek.IsZero() && c.now().Sub(c.lastSeek) < window
}

// ScrollWithin reports whether a scroll happened within the window.
func (c *IntentClock) ScrollWithin(window time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastScroll.IsZero() && c.now().Sub(c.lastScroll) < window
}

// ToggleWithin reports whether a play/pause toggle happened within the window.
func (c *IntentClock) ToggleWithin(window time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastToggle.IsZero() && c.now().Sub(c.lastToggle) < window
}
