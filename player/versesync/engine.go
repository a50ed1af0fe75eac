package versesync

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kinyabible/audiobible/player"
)

// SyncState is the derived sync output. CurrentVerse is empty when no verse
// interval contains the adjusted position. Never persisted; recomputed on
// every position event.
type SyncState struct {
	CurrentVerse string
	Offset       time.Duration
}

// Engine consumes position events and publishes the current-verse signal.
// It is the single writer of CurrentVerse; everything else only reads.
type Engine struct {
	cfg    player.Config
	events <-chan player.Event

	mu       sync.RWMutex
	resolver *Resolver
	current  string
	offset   time.Duration

	onChange []func(verse string)

	done chan struct{}
	wg   sync.WaitGroup
}

// NewEngine creates a sync engine subscribed to the bus.
func NewEngine(bus *player.Bus, cfg player.Config) *Engine {
	e := &Engine{
		cfg:      cfg,
		events:   bus.Subscribe(32),
		resolver: NewResolver(nil),
		done:     make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// SetVerses installs a chapter's timing table and clears the current verse.
func (e *Engine) SetVerses(verses []player.Verse) {
	e.mu.Lock()
	e.resolver = NewResolver(verses)
	changed := e.current != ""
	e.current = ""
	e.mu.Unlock()

	if changed {
		e.notify("")
	}
}

// Resolver returns the active verse table.
func (e *Engine) Resolver() *Resolver {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolver
}

// State returns the current sync state.
func (e *Engine) State() SyncState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return SyncState{CurrentVerse: e.current, Offset: e.offset}
}

// CurrentVerse returns the verse currently being narrated, or "".
func (e *Engine) CurrentVerse() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// NudgeOffset adjusts the manual sync correction by the configured step in
// the given direction (+1 later, -1 earlier) and returns the new offset.
func (e *Engine) NudgeOffset(direction int) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if direction > 0 {
		e.offset += e.cfg.SyncOffsetStep
	} else if direction < 0 {
		e.offset -= e.cfg.SyncOffsetStep
	}
	log.Debug("sync offset adjusted", "offset", e.offset)
	return e.offset
}

// ResetOffset clears the manual sync correction.
func (e *Engine) ResetOffset() {
	e.mu.Lock()
	e.offset = 0
	e.mu.Unlock()
}

// OnVerseChange registers a callback for current-verse changes. The empty
// string means no verse is active.
func (e *Engine) OnVerseChange(fn func(verse string)) {
	e.mu.Lock()
	e.onChange = append(e.onChange, fn)
	e.mu.Unlock()
}

// Close stops the engine.
func (e *Engine) Close() {
	close(e.done)
	e.wg.Wait()
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case ev, ok := <-e.events:
			if !ok {
				return
			}
			switch t := ev.(type) {
			case player.PositionEvent:
				e.update(t.Position)
			case player.EndOfTrackEvent:
				e.reset()
			case player.LoadedEvent:
				e.reset()
			}
		}
	}
}

// update recomputes the current verse for a reported position. Runs
// synchronously per event; resolution is a scan over the small verse table.
func (e *Engine) update(pos time.Duration) {
	e.mu.Lock()
	verse, _ := e.resolver.Resolve(pos + e.offset)
	changed := verse != e.current
	e.current = verse
	e.mu.Unlock()

	if changed {
		e.notify(verse)
	}
}

func (e *Engine) reset() {
	e.mu.Lock()
	changed := e.current != ""
	e.current = ""
	e.mu.Unlock()

	if changed {
		e.notify("")
	}
}

func (e *Engine) notify(verse string) {
	e.mu.RLock()
	callbacks := make([]func(string), len(e.onChange))
	copy(callbacks, e.onChange)
	e.mu.RUnlock()

	for _, fn := range callbacks {
		fn(verse)
	}
}
