package mix

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/bgloop"
	"github.com/kinyabible/audiobible/player/transport"
)

// fakeTransport is a minimal narration transport for driving the real
// coordinator.
type fakeTransport struct {
	mu      sync.Mutex
	volumes []float64
}

func (f *fakeTransport) Load(context.Context, player.Track) error { return nil }
func (f *fakeTransport) Play(context.Context) error               { return nil }
func (f *fakeTransport) Pause(context.Context) error              { return nil }
func (f *fakeTransport) Seek(context.Context, time.Duration) error {
	return nil
}

func (f *fakeTransport) SetVolume(_ context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, v)
	return nil
}

func (f *fakeTransport) SetRate(context.Context, float64) error { return nil }
func (f *fakeTransport) Position() time.Duration                { return 0 }
func (f *fakeTransport) IsPlaying() bool                        { return false }
func (f *fakeTransport) Current() (player.Track, bool)          { return player.Track{}, false }
func (f *fakeTransport) Close() error                           { return nil }

func (f *fakeTransport) lastVolume() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.volumes) == 0 {
		return 0, false
	}
	return f.volumes[len(f.volumes)-1], true
}

type fixture struct {
	transport *fakeTransport
	engine    *transport.MockEngine
	coord     *player.Coordinator
	loop      *bgloop.Controller
	bus       *player.Bus
	sup       *Supervisor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := player.DefaultConfig()
	cfg.VolumeDebounce = 5 * time.Millisecond

	bus := player.NewBus()
	ft := &fakeTransport{}
	coord := player.NewCoordinator(ft, bus, player.NewIntentClock(), cfg)
	engine := transport.NewMockEngine()
	loop := bgloop.NewController(engine, cfg)
	sup := NewSupervisor(coord, loop, bus)

	t.Cleanup(func() {
		sup.Close()
		loop.Close()
		coord.Close()
		bus.Close()
	})
	return &fixture{transport: ft, engine: engine, coord: coord, loop: loop, bus: bus, sup: sup}
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func rainSelection() player.BackgroundSelection {
	return player.BackgroundSelection{
		TrackID: "rain",
		URL:     "https://content.example.com/loops/rain.mp3",
		Volume:  0.5,
	}
}

func TestSelectionOpensLoopPaused(t *testing.T) {
	f := newFixture(t)

	f.sup.SetSelection(rainSelection())

	waitFor(t, "loop stream to open", func() bool { return f.engine.OpenCount() == 1 })
	stream := f.engine.LastStream()
	if !stream.Opts.Loop {
		t.Error("loop stream opened without looping")
	}
	if got := stream.Opts.Volume; got != 0.5 {
		t.Errorf("loop opened at volume %v, want 0.5", got)
	}
	// Narration is not playing yet, so the loop stays paused.
	if f.loop.Playing() {
		t.Error("loop playing before narration started")
	}
}

func TestLoopFollowsNarration(t *testing.T) {
	f := newFixture(t)
	f.sup.SetSelection(rainSelection())
	waitFor(t, "loop stream to open", func() bool { return f.engine.OpenCount() == 1 })

	track := player.NewTrack("https://content.example.com/audio/genesis1.mp3", "Genesis 1", "Kinyarwanda Bible")
	f.coord.LoadAndPlay(track)
	f.bus.Publish(player.LoadedEvent{TrackID: track.ID, Duration: 3 * time.Minute})

	waitFor(t, "loop to start with narration", func() bool { return f.loop.Playing() })
	if f.engine.OpenCount() != 1 {
		t.Errorf("loop reopened on resume, OpenCount = %d", f.engine.OpenCount())
	}

	f.coord.Pause()
	waitFor(t, "loop to pause with narration", func() bool { return !f.loop.Playing() })
	if f.engine.LastStream().Closed() {
		t.Error("pause tore down the loop stream")
	}
}

func TestEndOfTrackStopsLoop(t *testing.T) {
	f := newFixture(t)
	f.sup.SetSelection(rainSelection())
	waitFor(t, "loop stream to open", func() bool { return f.engine.OpenCount() == 1 })
	stream := f.engine.LastStream()

	f.bus.Publish(player.EndOfTrackEvent{})

	waitFor(t, "loop to stop", func() bool { return f.loop.URL() == "" })
	waitFor(t, "loop stream to close", stream.Closed)
}

func TestNoneSelectionSilencesLoop(t *testing.T) {
	f := newFixture(t)
	f.sup.SetSelection(rainSelection())
	waitFor(t, "loop stream to open", func() bool { return f.engine.OpenCount() == 1 })

	f.sup.SetSelection(player.BackgroundSelection{TrackID: "none"})

	waitFor(t, "loop to stop", func() bool { return f.loop.URL() == "" })
}

func TestMasterVolumeScalesBothChannels(t *testing.T) {
	f := newFixture(t)
	f.sup.SetSelection(rainSelection())
	waitFor(t, "loop stream to open", func() bool { return f.engine.OpenCount() == 1 })
	stream := f.engine.LastStream()

	f.sup.SetMasterVolume(0.5)

	waitFor(t, "narration volume command", func() bool {
		v, ok := f.transport.lastVolume()
		return ok && v == 0.5
	})
	waitFor(t, "loop volume to settle", func() bool { return stream.Volume() == 0.25 })

	narration, background, master := f.sup.Volumes()
	if narration != 1.0 || background != 0.5 || master != 0.5 {
		t.Errorf("Volumes() = (%v, %v, %v), want (1, 0.5, 0.5)", narration, background, master)
	}
}

func TestChannelVolumesApplyMaster(t *testing.T) {
	f := newFixture(t)
	f.sup.SetSelection(rainSelection())
	waitFor(t, "loop stream to open", func() bool { return f.engine.OpenCount() == 1 })
	stream := f.engine.LastStream()
	f.sup.SetMasterVolume(0.5)

	f.sup.SetNarrationVolume(0.8)
	waitFor(t, "narration volume command", func() bool {
		v, ok := f.transport.lastVolume()
		return ok && v == 0.4
	})

	f.sup.SetBackgroundVolume(0.2)
	waitFor(t, "loop volume to settle", func() bool { return stream.Volume() == 0.1 })
}

func TestVolumesClamped(t *testing.T) {
	f := newFixture(t)

	f.sup.SetNarrationVolume(1.4)
	f.sup.SetBackgroundVolume(-0.2)
	f.sup.SetMasterVolume(2.0)

	narration, background, master := f.sup.Volumes()
	if narration != 1.0 || background != 0.0 || master != 1.0 {
		t.Errorf("Volumes() = (%v, %v, %v), want (1, 0, 1)", narration, background, master)
	}
}
