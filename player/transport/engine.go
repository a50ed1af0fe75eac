// Package transport adapts a platform audio engine into the single-track
// playback capability the coordinator drives.
package transport

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Engine is the playback backend strategy. Exactly one engine is selected
// at startup; the adapter never re-probes per call.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// Available reports whether the engine can produce audio.
	Available() bool

	// Open creates a playable stream for the given URL. The stream starts
	// paused.
	Open(ctx context.Context, url string, opts OpenOptions) (Stream, error)
}

// OpenOptions configures a stream at creation.
type OpenOptions struct {
	// Loop restarts the stream from the beginning when it drains. Looping
	// streams never signal Done.
	Loop bool
	// Volume is the initial volume in [0, 1].
	Volume float64
	// Rate is the initial playback rate; zero means 1.0.
	Rate float64
}

// Stream is a single open audio pipeline. All mutating calls are safe for
// concurrent use; failures are returned, never panicked.
type Stream interface {
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	SetVolume(v float64) error
	SetRate(r float64) error

	Position() time.Duration
	Duration() time.Duration
	Playing() bool

	// Done is closed when the stream reaches its natural end. Closing the
	// stream does not signal Done.
	Done() <-chan struct{}

	// Close releases the pipeline. Required before opening a replacement:
	// two decoding pipelines must never be active at once.
	Close() error
}

// Detect selects the playback engine once at startup: the speaker-backed
// engine when the audio device initializes, otherwise the silent engine.
func Detect() Engine {
	speaker := NewSpeakerEngine()
	if speaker.Available() {
		log.Debug("selected audio engine", "engine", speaker.Name())
		return speaker
	}
	log.Warn("audio device unavailable, playback disabled")
	return NewSilentEngine()
}
