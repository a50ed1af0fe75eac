package player

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Coordinator is the single source of truth for desired play/pause state.
// It serializes commands to the transport through a single-slot queue so
// rapid toggles cannot race, and debounces platform-reported state against
// recent user actions.
type Coordinator struct {
	transport Transport
	bus       *Bus
	events    <-chan Event
	cfg       Config
	intent    *IntentClock

	mu       sync.RWMutex
	machine  *StateMachine
	track    Track
	hasTrack bool
	desired  bool
	reported bool
	position time.Duration
	duration time.Duration
	rate     float64
	volume   float64
	lastErr  error

	// Single-slot command queue. A newly submitted command replaces any
	// command still waiting; the command currently executing always
	// completes first, preserving submission order.
	cmdCh chan command

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onChange []func(PlaybackState)
}

type command struct {
	name string
	run  func(ctx context.Context) error
}

// NewCoordinator creates a coordinator over the given transport and bus.
func NewCoordinator(transport Transport, bus *Bus, intent *IntentClock, cfg Config) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		transport: transport,
		bus:       bus,
		events:    bus.Subscribe(32),
		cfg:       cfg,
		intent:    intent,
		machine:   NewStateMachine(),
		rate:      1.0,
		volume:    1.0,
		cmdCh:     make(chan command, 1),
		ctx:       ctx,
		cancel:    cancel,
	}

	c.wg.Add(2)
	go c.commandLoop()
	go c.eventLoop()

	return c
}

// Load installs a new track. Any pending command from the previous track is
// superseded; its late events are discarded by identity.
func (c *Coordinator) Load(track Track) {
	c.load(track, false)
}

// LoadAndPlay installs a new track and starts playback once it is ready.
func (c *Coordinator) LoadAndPlay(track Track) {
	c.load(track, true)
}

func (c *Coordinator) load(track Track, autoplay bool) {
	c.intent.MarkToggle()

	c.mu.Lock()
	c.track = track
	c.hasTrack = true
	c.desired = autoplay
	c.reported = false
	c.position = 0
	c.duration = track.Duration
	c.lastErr = nil
	c.machine.Transition(StateLoading)
	c.mu.Unlock()
	c.notify()

	c.submit(command{name: "load", run: func(ctx context.Context) error {
		return c.transport.Load(ctx, track)
	}})
}

// Play starts or resumes playback. From StateError it retries the load
// first, per the recoverable-error contract.
func (c *Coordinator) Play() {
	c.intent.MarkToggle()

	c.mu.Lock()
	state := c.machine.Current()
	track := c.track
	hasTrack := c.hasTrack
	c.desired = true
	c.mu.Unlock()

	if !hasTrack {
		return
	}

	if state == StateError {
		log.Debug("retrying load from error state", "track", track.SourceURL)
		c.load(track, true)
		return
	}

	c.notify()
	c.submit(command{name: "play", run: func(ctx context.Context) error {
		if err := c.transport.Play(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		if c.desired {
			c.machine.Transition(StatePlaying)
		}
		c.mu.Unlock()
		c.notify()
		return nil
	}})
}

// Pause pauses playback.
func (c *Coordinator) Pause() {
	c.intent.MarkToggle()

	c.mu.Lock()
	c.desired = false
	c.mu.Unlock()
	c.notify()

	c.submit(command{name: "pause", run: func(ctx context.Context) error {
		if err := c.transport.Pause(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		if !c.desired {
			c.machine.Transition(StatePaused)
		}
		c.mu.Unlock()
		c.notify()
		return nil
	}})
}

// Toggle flips between play and pause.
func (c *Coordinator) Toggle() {
	c.mu.RLock()
	desired := c.desired
	c.mu.RUnlock()

	if desired {
		c.Pause()
	} else {
		c.Play()
	}
}

// SeekTo moves the narration position. The position is updated
// optimistically ahead of the engine's next position event.
func (c *Coordinator) SeekTo(pos time.Duration) {
	if pos < 0 {
		pos = 0
	}
	c.intent.MarkSeek()

	c.mu.Lock()
	c.position = pos
	c.mu.Unlock()
	c.notify()

	c.submit(command{name: "seek", run: func(ctx context.Context) error {
		return c.transport.Seek(ctx, pos)
	}})
}

// Stop halts playback and resets the position to the start. The track stays
// loaded; this mirrors the robust remote-stop behavior.
func (c *Coordinator) Stop() {
	c.intent.MarkToggle()

	c.mu.Lock()
	c.desired = false
	c.position = 0
	c.machine.Transition(StatePaused)
	c.mu.Unlock()
	c.notify()

	c.submit(command{name: "stop", run: func(ctx context.Context) error {
		if err := c.transport.Pause(ctx); err != nil {
			return err
		}
		return c.transport.Seek(ctx, 0)
	}})
}

// SetRate sets the narration playback rate.
func (c *Coordinator) SetRate(r float64) {
	r = ClampRate(r)
	c.mu.Lock()
	c.rate = r
	c.mu.Unlock()

	c.submit(command{name: "set_rate", run: func(ctx context.Context) error {
		return c.transport.SetRate(ctx, r)
	}})
}

// SetVolume sets the effective narration volume.
func (c *Coordinator) SetVolume(v float64) {
	v = ClampVolume(v)
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()

	c.submit(command{name: "set_volume", run: func(ctx context.Context) error {
		return c.transport.SetVolume(ctx, v)
	}})
}

// State returns a snapshot of playback.
func (c *Coordinator) State() PlaybackState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return PlaybackState{
		State:           c.machine.Current(),
		DesiredPlaying:  c.desired,
		ReportedPlaying: c.reported,
		Position:        c.position,
		Duration:        c.duration,
		Rate:            c.rate,
		NarrationVolume: c.volume,
		Err:             c.lastErr,
	}
}

// OnChange registers a callback invoked after every state change.
func (c *Coordinator) OnChange(fn func(PlaybackState)) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Close stops the coordinator's goroutines.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// submit places a command in the single-slot queue. If a command is already
// waiting it is replaced: only the latest pending intent survives, while
// the executing command always runs to completion.
func (c *Coordinator) submit(cmd command) {
	for {
		select {
		case c.cmdCh <- cmd:
			return
		default:
		}
		select {
		case stale := <-c.cmdCh:
			log.Debug("superseding queued command", "stale", stale.name, "next", cmd.name)
		default:
		}
	}
}

func (c *Coordinator) commandLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case cmd := <-c.cmdCh:
			if err := cmd.run(c.ctx); err != nil {
				c.handleCommandError(cmd.name, err)
			}
		}
	}
}

func (c *Coordinator) handleCommandError(name string, err error) {
	log.Warn("playback command failed", "command", name, "error", err)

	c.mu.Lock()
	c.lastErr = err
	if name == "load" {
		c.desired = false
		c.machine.Transition(StateError)
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) eventLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Coordinator) handleEvent(ev Event) {
	c.mu.Lock()
	if stale := c.hasTrack && ev.Track() != uuid.Nil && ev.Track() != c.track.ID; stale {
		c.mu.Unlock()
		log.Debug("discarding stale track event", "track", ev.Track())
		return
	}

	switch e := ev.(type) {
	case LoadedEvent:
		c.duration = e.Duration
		if c.machine.Current() == StateLoading {
			c.machine.Transition(StatePaused)
		}
		desired := c.desired
		c.mu.Unlock()
		c.notify()
		if desired {
			c.submit(command{name: "play", run: func(ctx context.Context) error {
				if err := c.transport.Play(ctx); err != nil {
					return err
				}
				c.mu.Lock()
				if c.desired {
					c.machine.Transition(StatePlaying)
				}
				c.mu.Unlock()
				c.notify()
				return nil
			}})
		}
		return

	case PositionEvent:
		c.position = e.Position
		if e.Duration > 0 {
			c.duration = e.Duration
		}
		c.mu.Unlock()
		c.notify()
		return

	case StateEvent:
		// Stale or delayed engine callbacks must not flip state the user
		// just set; ignore reports inside the debounce window.
		if c.intent.ToggleWithin(c.cfg.ToggleDebounce) {
			c.mu.Unlock()
			log.Debug("ignoring engine state inside debounce window", "playing", e.Playing)
			return
		}
		c.reported = e.Playing
		if !e.Playing && c.machine.Current() == StatePlaying {
			// External interruption (route change, OS focus loss).
			c.desired = false
			c.machine.Transition(StatePaused)
		}
		c.mu.Unlock()
		c.notify()
		return

	case EndOfTrackEvent:
		c.desired = false
		c.reported = false
		c.position = 0
		c.machine.Transition(StatePaused)
		c.mu.Unlock()
		c.notify()
		c.submit(command{name: "rewind", run: func(ctx context.Context) error {
			return c.transport.Seek(ctx, 0)
		}})
		return

	case ErrorEvent:
		c.lastErr = e.Err
		if e.Err != nil && e.Err.Severity == SeverityError {
			c.desired = false
			c.machine.Transition(StateError)
		}
		c.mu.Unlock()
		c.notify()
		return
	}

	c.mu.Unlock()
}

func (c *Coordinator) notify() {
	state := c.State()
	c.mu.RLock()
	callbacks := make([]func(PlaybackState), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.RUnlock()

	for _, fn := range callbacks {
		fn(state)
	}
}
