// Package bgloop maintains the looping background music stream. Its
// lifecycle is decoupled from narration track replacement: chapters come
// and go while the loop keeps its position.
package bgloop

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/transport"
)

// nearSilentFloor avoids volumes that are technically audible but
// effectively silent; anything in (0, 0.01) is raised to this.
const nearSilentFloor = 0.05

// Controller owns the background loop stream. The loop is opened on the
// shared mixer so it never owns the audio output exclusively; narration
// stays audible over it.
type Controller struct {
	engine transport.Engine
	cfg    player.Config

	mu      sync.Mutex
	stream  transport.Stream
	url     string
	volume  float64
	playing bool
	closed  bool

	// Rapid volume changes coalesce to the latest value; the applier
	// settles within the debounce window without audible stepping.
	volCh  chan float64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a background loop controller over the engine.
func NewController(engine transport.Engine, cfg player.Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine: engine,
		cfg:    cfg,
		volume: 0.3,
		volCh:  make(chan float64, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	c.wg.Add(1)
	go c.volumeLoop()
	return c
}

// SetSelection applies the user's music choice. Reloading happens only when
// the URL actually changes, so re-selecting the current track produces no
// audible glitch.
func (c *Controller) SetSelection(ctx context.Context, sel player.BackgroundSelection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sel.None() {
		c.stopLocked()
		return nil
	}
	if sel.URL == c.url && c.stream != nil {
		c.volume = clampLoopVolume(sel.Volume)
		return c.stream.SetVolume(c.volume)
	}
	return c.reloadLocked(ctx, sel.URL, clampLoopVolume(sel.Volume))
}

// Sync aligns the loop with narration. While narration plays the loop is
// loaded and running at the given volume; otherwise it is soft-paused so
// resuming narration resumes the loop from its prior position without
// reload latency.
func (c *Controller) Sync(ctx context.Context, narrationPlaying bool, url string, volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return player.ErrShutdown
	}

	if !narrationPlaying {
		if c.stream != nil && c.playing {
			c.playing = false
			if err := c.stream.Pause(); err != nil {
				log.Warn("soft-pausing background loop", "error", err)
			}
		}
		return nil
	}

	if url == "" {
		return nil
	}

	volume = clampLoopVolume(volume)
	if c.stream == nil || c.url != url {
		return c.reloadLocked(ctx, url, volume)
	}

	c.volume = volume
	if err := c.stream.SetVolume(volume); err != nil {
		return err
	}
	if !c.playing {
		if err := c.stream.Play(); err != nil {
			log.Warn("resuming background loop", "error", err)
			return nil
		}
		c.playing = true
	}
	return nil
}

// Stop fully tears the loop down. Used when the listening session ends;
// ordinary narration pauses go through Sync's soft pause instead.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// SetVolume requests a volume change. Requests are coalesced: only the
// latest value is applied, shortly after input settles.
func (c *Controller) SetVolume(v float64) {
	select {
	case c.volCh <- v:
	default:
		select {
		case <-c.volCh:
		default:
		}
		select {
		case c.volCh <- v:
		default:
		}
	}
}

// Playing reports whether the loop is currently audible.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// URL returns the currently loaded loop URL.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Close tears down the loop and its goroutines.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) reloadLocked(ctx context.Context, url string, volume float64) error {
	c.stopLocked()

	stream, err := c.engine.Open(ctx, url, transport.OpenOptions{
		Loop:   true,
		Volume: volume,
	})
	if err != nil {
		log.Warn("loading background loop", "url", url, "error", err)
		return player.NewError(player.ErrPlaybackLoadFailed, "bgloop", "load").WithSeverity(player.SeverityWarning)
	}

	c.stream = stream
	c.url = url
	c.volume = volume

	if err := stream.Play(); err != nil {
		// No audio capability; keep the stream for state consistency but
		// stay silent.
		log.Debug("background loop cannot start", "error", err)
		return nil
	}
	c.playing = true
	log.Debug("background loop started", "url", url, "volume", volume)
	return nil
}

func (c *Controller) stopLocked() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Close(); err != nil {
		log.Warn("closing background loop", "error", err)
	}
	c.stream = nil
	c.url = ""
	c.playing = false
}

func (c *Controller) volumeLoop() {
	defer c.wg.Done()
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending float64
	)

	for {
		select {
		case <-c.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case v := <-c.volCh:
			pending = v
			if timer == nil {
				timer = time.NewTimer(c.cfg.VolumeDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(c.cfg.VolumeDebounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			c.applyVolume(pending)
		}
	}
}

func (c *Controller) applyVolume(v float64) {
	v = clampLoopVolume(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
	if c.stream == nil {
		return
	}
	if err := c.stream.SetVolume(v); err != nil {
		log.Warn("applying background volume", "error", err)
	}
}

func clampLoopVolume(v float64) float64 {
	v = player.ClampVolume(v)
	if v > 0 && v < 0.01 {
		return nearSilentFloor
	}
	return v
}
