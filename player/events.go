package player

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Events published on the engine bus. The transport is the only producer;
// the sync engine, coordinator and mix supervisor subscribe independently.
// An event never carries the identity of a track that has been replaced;
// consumers still compare TrackID before acting on one.

// Event is any playback telemetry event.
type Event interface {
	// Track returns the identity of the track the event belongs to.
	Track() uuid.UUID
}

// LoadedEvent indicates a track finished loading and is ready, paused.
type LoadedEvent struct {
	TrackID  uuid.UUID
	Duration time.Duration
}

// PositionEvent reports playback progress. Positions are non-decreasing
// while playing for a given track.
type PositionEvent struct {
	TrackID  uuid.UUID
	Position time.Duration
	Duration time.Duration
}

// StateEvent reports the engine's playing/paused signal. Advisory: the
// coordinator ignores it inside the user-intent debounce window.
type StateEvent struct {
	TrackID uuid.UUID
	Playing bool
}

// EndOfTrackEvent indicates the track played to its natural end.
type EndOfTrackEvent struct {
	TrackID uuid.UUID
}

// ErrorEvent carries an engine failure across the component boundary.
type ErrorEvent struct {
	TrackID uuid.UUID
	Err     *Error
}

// Track implements Event.
func (e LoadedEvent) Track() uuid.UUID     { return e.TrackID }
func (e PositionEvent) Track() uuid.UUID   { return e.TrackID }
func (e StateEvent) Track() uuid.UUID      { return e.TrackID }
func (e EndOfTrackEvent) Track() uuid.UUID { return e.TrackID }
func (e ErrorEvent) Track() uuid.UUID      { return e.TrackID }

// Bus is a fan-out channel for playback events. Delivery is best-effort:
// a subscriber that falls behind loses the oldest pending event rather
// than blocking the transport.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber with the given buffer size.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev to all subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
