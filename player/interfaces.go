// Package player implements the narration playback engine: an intent
// coordinator over a media transport, verse synchronization, background
// music mixing and autoscroll decisions.
package player

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transport is the single-track playback capability the coordinator drives.
// Implementations wrap a platform audio engine; engine failures are reported
// through the event stream, never thrown past this boundary.
type Transport interface {
	// Load tears down any current track and installs the new one. After Load
	// returns, no further events carry the replaced track's identity.
	Load(ctx context.Context, track Track) error

	// Play starts playback. Calling Play while already playing is a no-op.
	Play(ctx context.Context) error

	// Pause pauses playback without releasing the track.
	Pause(ctx context.Context) error

	// Seek moves the playback position. Negative positions clamp to zero.
	Seek(ctx context.Context, pos time.Duration) error

	// SetVolume sets narration volume, clamped to [0, 1].
	SetVolume(ctx context.Context, v float64) error

	// SetRate sets the playback rate, clamped to [0.75, 2.0].
	SetRate(ctx context.Context, r float64) error

	// Position returns the last known playback position.
	Position() time.Duration

	// IsPlaying reports whether the engine believes audio is running. This
	// is advisory; desired state is owned by the Coordinator.
	IsPlaying() bool

	// Current returns the loaded track, if any.
	Current() (Track, bool)

	// Close releases the engine resources.
	Close() error
}

// Track identifies a single narration source. Tracks are replaced, never
// mutated, whenever the source URL changes.
type Track struct {
	ID         uuid.UUID
	SourceURL  string
	Title      string
	Artist     string
	ArtworkURL string
	Duration   time.Duration // zero until the engine reports it
}

// NewTrack builds a track with a fresh identity for the given source.
func NewTrack(sourceURL, title, artist string) Track {
	return Track{
		ID:        uuid.New(),
		SourceURL: sourceURL,
		Title:     title,
		Artist:    artist,
	}
}

// Verse is a single verse with optional narration timing. Timed is false
// when the chapter data carried no interval, or an invalid one.
type Verse struct {
	Number string
	Text   string
	Start  time.Duration
	End    time.Duration
	Timed  bool
}

// PlaybackState is a snapshot of the coordinator's view of playback.
// DesiredPlaying is owned by the Coordinator; ReportedPlaying and Position
// come from the transport and are advisory only.
type PlaybackState struct {
	State           StateType
	DesiredPlaying  bool
	ReportedPlaying bool
	Position        time.Duration
	Duration        time.Duration
	Rate            float64
	NarrationVolume float64
	Err             error
}

// BackgroundSelection is the user's background music choice. A nil URL (or
// the "none" id) means no background music.
type BackgroundSelection struct {
	TrackID string
	URL     string
	Volume  float64
}

// None reports whether the selection disables background music.
func (s BackgroundSelection) None() bool {
	return s.URL == "" || s.TrackID == "none"
}

const (
	// MinRate and MaxRate bound the narration playback rate.
	MinRate = 0.75
	MaxRate = 2.0
)

// ClampVolume bounds a volume to [0, 1].
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampRate bounds a playback rate to [MinRate, MaxRate].
func ClampRate(r float64) float64 {
	if r < MinRate {
		return MinRate
	}
	if r > MaxRate {
		return MaxRate
	}
	return r
}
