package transport

import (
	"context"
	"time"

	"github.com/kinyabible/audiobible/player"
)

// SilentEngine is the fallback strategy when no audio device is present.
// Streams open so chapter text remains browsable, but any attempt to play
// reports ErrEngineUnavailable; the UI must never claim audio is running.
type SilentEngine struct{}

// NewSilentEngine creates the no-audio engine.
func NewSilentEngine() *SilentEngine {
	return &SilentEngine{}
}

// Name implements Engine.
func (e *SilentEngine) Name() string { return "silent" }

// Available implements Engine.
func (e *SilentEngine) Available() bool { return false }

// Open implements Engine.
func (e *SilentEngine) Open(_ context.Context, _ string, _ OpenOptions) (Stream, error) {
	return &silentStream{done: make(chan struct{})}, nil
}

type silentStream struct {
	done chan struct{}
}

func (s *silentStream) Play() error {
	return player.ErrEngineUnavailable
}

func (s *silentStream) Pause() error             { return nil }
func (s *silentStream) Seek(time.Duration) error { return nil }
func (s *silentStream) SetVolume(float64) error  { return nil }
func (s *silentStream) SetRate(float64) error    { return nil }
func (s *silentStream) Position() time.Duration  { return 0 }
func (s *silentStream) Duration() time.Duration  { return 0 }
func (s *silentStream) Playing() bool            { return false }
func (s *silentStream) Done() <-chan struct{}    { return s.done }
func (s *silentStream) Close() error             { return nil }
