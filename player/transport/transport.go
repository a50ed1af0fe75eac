package transport

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kinyabible/audiobible/player"
)

// Adapter presents a single-track playback capability over the selected
// engine. All engine failures after the retry policy are delivered on the
// event bus, never returned up into UI code.
type Adapter struct {
	engine  Engine
	bus     *player.Bus
	session *MediaSession
	cfg     player.Config

	mu      sync.Mutex
	track   player.Track
	stream  Stream
	hasT    bool
	volume  float64
	rate    float64
	playing bool

	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
}

// NewAdapter creates a transport adapter over the given engine.
func NewAdapter(engine Engine, bus *player.Bus, session *MediaSession, cfg player.Config) *Adapter {
	return &Adapter{
		engine:  engine,
		bus:     bus,
		session: session,
		cfg:     cfg,
		volume:  1.0,
		rate:    1.0,
	}
}

// Load tears down the current track and installs the new one. The previous
// track's telemetry loop is fully stopped before the new stream opens, so
// no event for a replaced track outlives Load. A transient open failure is
// retried once after a short backoff before PlaybackLoadFailed surfaces.
func (a *Adapter) Load(ctx context.Context, track player.Track) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.teardownLocked()

	opts := OpenOptions{Volume: a.volume, Rate: a.rate}
	stream, err := a.engine.Open(ctx, track.SourceURL, opts)
	if err != nil {
		log.Debug("open failed, retrying once", "url", track.SourceURL, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.LoadRetryBackoff):
		}
		stream, err = a.engine.Open(ctx, track.SourceURL, opts)
	}
	if err != nil {
		wrapped := player.NewError(player.ErrPlaybackLoadFailed, "transport", "load")
		a.bus.Publish(player.ErrorEvent{TrackID: track.ID, Err: wrapped})
		return wrapped
	}

	a.track = track
	a.stream = stream
	a.hasT = true
	a.playing = false

	if d := stream.Duration(); d > 0 {
		a.track.Duration = d
	}
	if a.session != nil {
		a.session.SetNowPlaying(a.track)
	}

	a.startLoopLocked()
	a.bus.Publish(player.LoadedEvent{TrackID: track.ID, Duration: a.track.Duration})
	log.Debug("track loaded", "title", track.Title, "duration", a.track.Duration)
	return nil
}

// Play starts playback. A no-op while already playing; a failed engine call
// is retried once, and a second failure is reported as
// PlaybackCommandFailed on the error channel without reaching the caller.
func (a *Adapter) Play(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasT {
		return player.ErrNoTrackLoaded
	}
	if a.playing && a.stream.Playing() {
		return nil
	}

	if err := a.playWithRetryLocked(); err != nil {
		return nil
	}
	a.playing = true
	a.bus.Publish(player.StateEvent{TrackID: a.track.ID, Playing: true})
	return nil
}

func (a *Adapter) playWithRetryLocked() error {
	err := a.stream.Play()
	if err == nil {
		return nil
	}
	log.Debug("play failed, retrying once", "error", err)
	err = a.stream.Play()
	if err == nil {
		return nil
	}

	wrapped := player.NewError(player.ErrPlaybackCommandFailed, "transport", "play")
	if !player.IsRecoverable(err) {
		wrapped = player.NewError(err, "transport", "play")
	}
	a.bus.Publish(player.ErrorEvent{TrackID: a.track.ID, Err: wrapped})
	return err
}

// Pause pauses playback. A no-op while already paused.
func (a *Adapter) Pause(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasT {
		return player.ErrNoTrackLoaded
	}
	if !a.playing {
		return nil
	}

	if err := a.stream.Pause(); err != nil {
		wrapped := player.NewError(player.ErrPlaybackCommandFailed, "transport", "pause")
		a.bus.Publish(player.ErrorEvent{TrackID: a.track.ID, Err: wrapped})
		return nil
	}
	a.playing = false
	a.bus.Publish(player.StateEvent{TrackID: a.track.ID, Playing: false})
	return nil
}

// Seek moves the playback position, clamping negative input to zero.
func (a *Adapter) Seek(_ context.Context, pos time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasT {
		return player.ErrNoTrackLoaded
	}
	if pos < 0 {
		pos = 0
	}
	if err := a.stream.Seek(pos); err != nil {
		wrapped := player.NewError(player.ErrPlaybackCommandFailed, "transport", "seek")
		a.bus.Publish(player.ErrorEvent{TrackID: a.track.ID, Err: wrapped})
	}
	return nil
}

// SetVolume applies a narration volume clamped to [0, 1].
func (a *Adapter) SetVolume(_ context.Context, v float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.volume = player.ClampVolume(v)
	if !a.hasT {
		return nil
	}
	return a.stream.SetVolume(a.volume)
}

// SetRate applies a playback rate clamped to [0.75, 2.0].
func (a *Adapter) SetRate(_ context.Context, r float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rate = player.ClampRate(r)
	if !a.hasT {
		return nil
	}
	return a.stream.SetRate(a.rate)
}

// Position returns the last known playback position.
func (a *Adapter) Position() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasT {
		return 0
	}
	return a.stream.Position()
}

// IsPlaying reports the engine's view of playback.
func (a *Adapter) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasT && a.stream.Playing()
}

// Current returns the loaded track.
func (a *Adapter) Current() (player.Track, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.track, a.hasT
}

// Close releases the current stream and stops telemetry.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardownLocked()
	return nil
}

func (a *Adapter) teardownLocked() {
	if a.loopCancel != nil {
		a.loopCancel()
		a.mu.Unlock()
		a.loopWG.Wait()
		a.mu.Lock()
		a.loopCancel = nil
	}
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			log.Warn("closing stream", "error", err)
		}
		a.stream = nil
	}
	a.hasT = false
	a.playing = false
}

// startLoopLocked launches the telemetry loop for the current track. The
// loop owns position events and end-of-track detection; it stops before
// the track is ever replaced.
func (a *Adapter) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	a.loopCancel = cancel

	track := a.track
	stream := a.stream
	interval := a.cfg.PositionInterval

	a.loopWG.Add(1)
	go func() {
		defer a.loopWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stream.Done():
				a.mu.Lock()
				a.playing = false
				a.mu.Unlock()
				a.bus.Publish(player.EndOfTrackEvent{TrackID: track.ID})
				return
			case <-ticker.C:
				if !stream.Playing() {
					continue
				}
				a.bus.Publish(player.PositionEvent{
					TrackID:  track.ID,
					Position: stream.Position(),
					Duration: stream.Duration(),
				})
			}
		}
	}()
}
