package transport

import (
	"context"
	"sync"
	"time"
)

// MockEngine implements Engine for testing. It records every call, supports
// error injection, and lets tests drive playback position and end-of-track
// manually instead of with wall-clock timing.
type MockEngine struct {
	mu      sync.Mutex
	opens   []string
	streams []*MockStream

	// Error injection
	OpenErr      error
	OpenErrOnce  bool // clear OpenErr after the first failing Open
	PlayErr      error
	PlayErrCount int // number of Play calls that fail before succeeding
}

// NewMockEngine creates a mock engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Name implements Engine.
func (e *MockEngine) Name() string { return "mock" }

// Available implements Engine.
func (e *MockEngine) Available() bool { return true }

// Open implements Engine.
func (e *MockEngine) Open(_ context.Context, url string, opts OpenOptions) (Stream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.opens = append(e.opens, url)
	if e.OpenErr != nil {
		err := e.OpenErr
		if e.OpenErrOnce {
			e.OpenErr = nil
		}
		return nil, err
	}

	s := &MockStream{
		URL:      url,
		Opts:     opts,
		duration: 10 * time.Second,
		done:     make(chan struct{}),
		engine:   e,
	}
	e.streams = append(e.streams, s)
	return s, nil
}

// OpenCount returns how many times Open was called.
func (e *MockEngine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.opens)
}

// OpenedURLs returns every URL passed to Open, in order.
func (e *MockEngine) OpenedURLs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.opens))
	copy(out, e.opens)
	return out
}

// LastStream returns the most recently opened stream.
func (e *MockEngine) LastStream() *MockStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.streams) == 0 {
		return nil
	}
	return e.streams[len(e.streams)-1]
}

// MockStream is a manually driven stream.
type MockStream struct {
	URL  string
	Opts OpenOptions

	mu       sync.Mutex
	engine   *MockEngine
	playing  bool
	closed   bool
	position time.Duration
	duration time.Duration
	volume   float64
	rate     float64

	playCalls   int
	pauseCalls  int
	seekCalls   int
	volumeCalls int

	done     chan struct{}
	doneOnce sync.Once
}

// Play implements Stream.
func (s *MockStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playCalls++
	if s.engine != nil && s.engine.PlayErrCount > 0 {
		s.engine.PlayErrCount--
		return s.engine.PlayErr
	}
	s.playing = true
	return nil
}

// Pause implements Stream.
func (s *MockStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseCalls++
	s.playing = false
	return nil
}

// Seek implements Stream.
func (s *MockStream) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekCalls++
	if pos < 0 {
		pos = 0
	}
	s.position = pos
	return nil
}

// SetVolume implements Stream.
func (s *MockStream) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumeCalls++
	s.volume = v
	return nil
}

// SetRate implements Stream.
func (s *MockStream) SetRate(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = r
	return nil
}

// Position implements Stream.
func (s *MockStream) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Duration implements Stream.
func (s *MockStream) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Playing implements Stream.
func (s *MockStream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && !s.closed
}

// Done implements Stream.
func (s *MockStream) Done() <-chan struct{} { return s.done }

// Close implements Stream.
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.playing = false
	return nil
}

// Test drivers.

// AdvanceTo sets the reported position.
func (s *MockStream) AdvanceTo(pos time.Duration) {
	s.mu.Lock()
	s.position = pos
	s.mu.Unlock()
}

// FinishTrack simulates the stream reaching its natural end.
func (s *MockStream) FinishTrack() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

// Closed reports whether Close was called.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// PlayCalls returns how many times Play was invoked.
func (s *MockStream) PlayCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCalls
}

// PauseCalls returns how many times Pause was invoked.
func (s *MockStream) PauseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseCalls
}

// Volume returns the last volume applied.
func (s *MockStream) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// VolumeCalls returns how many times SetVolume was invoked.
func (s *MockStream) VolumeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumeCalls
}

// Rate returns the last rate applied.
func (s *MockStream) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}
