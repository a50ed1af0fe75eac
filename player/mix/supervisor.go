// Package mix keeps the background loop aligned with narration and owns
// the combined volume model.
package mix

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/bgloop"
)

// Supervisor wires playback intent and end-of-track events into the
// background loop, and fans volume settings out to both streams:
// narration plays at narration x master, the loop at background x master.
// Narration and loop events arrive on independent streams in no
// particular order, so every decision is taken from the latest snapshot
// rather than from event sequencing.
type Supervisor struct {
	coordinator *player.Coordinator
	loop        *bgloop.Controller
	events      <-chan player.Event

	mu         sync.Mutex
	selection  player.BackgroundSelection
	narration  float64
	background float64
	master     float64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSupervisor creates the mix supervisor and subscribes it to the bus.
func NewSupervisor(coordinator *player.Coordinator, loop *bgloop.Controller, bus *player.Bus) *Supervisor {
	s := &Supervisor{
		coordinator: coordinator,
		loop:        loop,
		events:      bus.Subscribe(32),
		narration:   1.0,
		background:  0.3,
		master:      1.0,
		done:        make(chan struct{}),
	}

	coordinator.OnChange(s.onPlayback)

	s.wg.Add(1)
	go s.run()
	return s
}

// SetSelection applies the user's background music choice.
func (s *Supervisor) SetSelection(sel player.BackgroundSelection) {
	s.mu.Lock()
	s.selection = sel
	if sel.Volume > 0 {
		s.background = player.ClampVolume(sel.Volume)
	}
	sel.Volume = s.background * s.master
	playing := s.coordinator.State().DesiredPlaying
	s.mu.Unlock()

	if err := s.loop.SetSelection(context.Background(), sel); err != nil {
		log.Warn("applying music selection", "error", err)
	}
	s.syncLoop(playing)
}

// SetNarrationVolume sets the narration channel volume.
func (s *Supervisor) SetNarrationVolume(v float64) {
	s.mu.Lock()
	s.narration = player.ClampVolume(v)
	effective := s.narration * s.master
	s.mu.Unlock()

	s.coordinator.SetVolume(effective)
}

// SetBackgroundVolume sets the loop channel volume.
func (s *Supervisor) SetBackgroundVolume(v float64) {
	s.mu.Lock()
	s.background = player.ClampVolume(v)
	effective := s.background * s.master
	s.mu.Unlock()

	s.loop.SetVolume(effective)
}

// SetMasterVolume scales both channels.
func (s *Supervisor) SetMasterVolume(v float64) {
	s.mu.Lock()
	s.master = player.ClampVolume(v)
	narration := s.narration * s.master
	background := s.background * s.master
	s.mu.Unlock()

	s.coordinator.SetVolume(narration)
	s.loop.SetVolume(background)
}

// Volumes returns the channel volumes (narration, background, master).
func (s *Supervisor) Volumes() (narration, background, master float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.narration, s.background, s.master
}

// Close stops the supervisor.
func (s *Supervisor) Close() {
	close(s.done)
	s.wg.Wait()
}

// onPlayback reacts to coordinator state changes: the loop follows the
// desired narration state with a soft pause.
func (s *Supervisor) onPlayback(state player.PlaybackState) {
	s.syncLoop(state.DesiredPlaying && state.State == player.StatePlaying)
}

func (s *Supervisor) syncLoop(narrationPlaying bool) {
	s.mu.Lock()
	sel := s.selection
	volume := s.background * s.master
	s.mu.Unlock()

	url := ""
	if !sel.None() {
		url = sel.URL
	}
	if err := s.loop.Sync(context.Background(), narrationPlaying, url, volume); err != nil {
		log.Warn("syncing background loop", "error", err)
	}
}

func (s *Supervisor) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			if _, isEnd := ev.(player.EndOfTrackEvent); isEnd {
				// Natural end of the chapter: the listening session is
				// over, so the loop gets a full stop, not a soft pause.
				log.Debug("narration ended, stopping background loop")
				s.loop.Stop()
			}
		}
	}
}
