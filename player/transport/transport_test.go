package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kinyabible/audiobible/player"
)

func testConfig() player.Config {
	cfg := player.DefaultConfig()
	cfg.LoadRetryBackoff = 5 * time.Millisecond
	cfg.PositionInterval = 10 * time.Millisecond
	return cfg
}

// drain collects events from a subscription until the timeout, returning
// the first event matching the predicate.
func awaitEvent(t *testing.T, ch <-chan player.Event, desc string, match func(player.Event) bool) player.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", desc)
			return nil
		}
	}
}

// TestAdapterLoadPublishesLoaded tests the happy load path.
func TestAdapterLoadPublishesLoaded(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()
	events := bus.Subscribe(8)

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/a.mp3", "Genesis 1", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ev := awaitEvent(t, events, "loaded event", func(ev player.Event) bool {
		_, ok := ev.(player.LoadedEvent)
		return ok
	})
	loaded := ev.(player.LoadedEvent)
	if loaded.TrackID != track.ID {
		t.Errorf("loaded TrackID = %v, want %v", loaded.TrackID, track.ID)
	}
	if loaded.Duration != 10*time.Second {
		t.Errorf("loaded Duration = %v, want stream duration 10s", loaded.Duration)
	}

	if urls := engine.OpenedURLs(); len(urls) != 1 || urls[0] != track.SourceURL {
		t.Errorf("OpenedURLs() = %v", urls)
	}
}

// TestAdapterLoadRetriesOnce tests that a transient open failure is
// retried exactly once before succeeding.
func TestAdapterLoadRetriesOnce(t *testing.T) {
	engine := NewMockEngine()
	engine.OpenErr = errors.New("transient")
	engine.OpenErrOnce = true

	bus := player.NewBus()
	defer bus.Close()

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/b.mp3", "Genesis 2", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatalf("Load() after one transient failure = %v, want nil", err)
	}
	if engine.OpenCount() != 2 {
		t.Errorf("OpenCount() = %d, want 2", engine.OpenCount())
	}
}

// TestAdapterLoadFailureSurfacesOnBus tests that a persistent failure
// produces both a returned error and an error event.
func TestAdapterLoadFailureSurfacesOnBus(t *testing.T) {
	engine := NewMockEngine()
	engine.OpenErr = errors.New("dead")

	bus := player.NewBus()
	defer bus.Close()
	events := bus.Subscribe(8)

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/c.mp3", "Genesis 3", "Test")
	err := a.Load(context.Background(), track)
	if !errors.Is(err, player.ErrPlaybackLoadFailed) {
		t.Fatalf("Load() error = %v, want ErrPlaybackLoadFailed", err)
	}
	if engine.OpenCount() != 2 {
		t.Errorf("OpenCount() = %d, want 2 (one retry)", engine.OpenCount())
	}

	ev := awaitEvent(t, events, "error event", func(ev player.Event) bool {
		_, ok := ev.(player.ErrorEvent)
		return ok
	})
	ee := ev.(player.ErrorEvent)
	if ee.TrackID != track.ID || !errors.Is(ee.Err, player.ErrPlaybackLoadFailed) {
		t.Errorf("error event = %+v", ee)
	}
}

// TestAdapterPlayIdempotent tests that repeated Play calls reach the
// engine only once while already playing.
func TestAdapterPlayIdempotent(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/d.mp3", "Genesis 4", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := a.Play(context.Background()); err != nil {
			t.Fatalf("Play() #%d error = %v", i+1, err)
		}
	}
	if calls := engine.LastStream().PlayCalls(); calls != 1 {
		t.Errorf("engine Play calls = %d, want 1", calls)
	}

	// Pause is likewise idempotent.
	for i := 0; i < 3; i++ {
		if err := a.Pause(context.Background()); err != nil {
			t.Fatalf("Pause() #%d error = %v", i+1, err)
		}
	}
	if calls := engine.LastStream().PauseCalls(); calls != 1 {
		t.Errorf("engine Pause calls = %d, want 1", calls)
	}
}

// TestAdapterPlayRetryThenReport tests the play retry policy: one retry,
// then a command failure on the error channel with no caller error.
func TestAdapterPlayRetryThenReport(t *testing.T) {
	engine := NewMockEngine()
	engine.PlayErr = errors.New("busy")
	engine.PlayErrCount = 2

	bus := player.NewBus()
	defer bus.Close()
	events := bus.Subscribe(8)

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/e.mp3", "Genesis 5", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatal(err)
	}

	if err := a.Play(context.Background()); err != nil {
		t.Fatalf("Play() = %v, want nil (failure goes to the bus)", err)
	}
	if calls := engine.LastStream().PlayCalls(); calls != 2 {
		t.Errorf("engine Play calls = %d, want 2", calls)
	}

	ev := awaitEvent(t, events, "command failure event", func(ev player.Event) bool {
		ee, ok := ev.(player.ErrorEvent)
		return ok && errors.Is(ee.Err, player.ErrPlaybackCommandFailed)
	})
	if ev.(player.ErrorEvent).TrackID != track.ID {
		t.Error("command failure carries the wrong track id")
	}
}

// TestAdapterPlayWithoutTrack tests the no-track error.
func TestAdapterPlayWithoutTrack(t *testing.T) {
	a := NewAdapter(NewMockEngine(), player.NewBus(), nil, testConfig())
	defer a.Close() //nolint:errcheck

	if err := a.Play(context.Background()); !errors.Is(err, player.ErrNoTrackLoaded) {
		t.Errorf("Play() without track = %v, want ErrNoTrackLoaded", err)
	}
}

// TestAdapterSeekClampsNegative tests negative positions clamp to zero.
func TestAdapterSeekClampsNegative(t *testing.T) {
	engine := NewMockEngine()
	a := NewAdapter(engine, player.NewBus(), nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/f.mp3", "Genesis 6", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatal(err)
	}

	if err := a.Seek(context.Background(), -3*time.Second); err != nil {
		t.Fatalf("Seek() = %v", err)
	}
	if pos := engine.LastStream().Position(); pos != 0 {
		t.Errorf("stream position = %v, want 0", pos)
	}
}

// TestAdapterVolumeAndRatePersistAcrossLoad tests that settings applied
// before a load carry into the opened stream.
func TestAdapterVolumeAndRatePersistAcrossLoad(t *testing.T) {
	engine := NewMockEngine()
	a := NewAdapter(engine, player.NewBus(), nil, testConfig())
	defer a.Close() //nolint:errcheck

	if err := a.SetVolume(context.Background(), 0.4); err != nil {
		t.Fatal(err)
	}
	if err := a.SetRate(context.Background(), 1.5); err != nil {
		t.Fatal(err)
	}

	track := player.NewTrack("https://example.com/g.mp3", "Genesis 7", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatal(err)
	}

	stream := engine.LastStream()
	if stream.Opts.Volume != 0.4 {
		t.Errorf("opened volume = %v, want 0.4", stream.Opts.Volume)
	}
	if stream.Opts.Rate != 1.5 {
		t.Errorf("opened rate = %v, want 1.5", stream.Opts.Rate)
	}

	// Out-of-range values clamp.
	if err := a.SetVolume(context.Background(), 1.8); err != nil {
		t.Fatal(err)
	}
	if v := stream.Volume(); v != 1.0 {
		t.Errorf("clamped volume = %v, want 1.0", v)
	}
	if err := a.SetRate(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if r := stream.Rate(); r != player.MaxRate {
		t.Errorf("clamped rate = %v, want %v", r, player.MaxRate)
	}
}

// TestAdapterEndOfTrackEvent tests natural-end detection.
func TestAdapterEndOfTrackEvent(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()
	events := bus.Subscribe(8)

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/h.mp3", "Genesis 8", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatal(err)
	}
	if err := a.Play(context.Background()); err != nil {
		t.Fatal(err)
	}

	engine.LastStream().FinishTrack()

	ev := awaitEvent(t, events, "end of track", func(ev player.Event) bool {
		_, ok := ev.(player.EndOfTrackEvent)
		return ok
	})
	if ev.(player.EndOfTrackEvent).TrackID != track.ID {
		t.Error("end-of-track carries the wrong track id")
	}
	if a.IsPlaying() {
		t.Error("IsPlaying() should be false after the track ends")
	}
}

// TestAdapterPositionEvents tests that telemetry reports progress while
// playing.
func TestAdapterPositionEvents(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()
	events := bus.Subscribe(16)

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	track := player.NewTrack("https://example.com/i.mp3", "Genesis 9", "Test")
	if err := a.Load(context.Background(), track); err != nil {
		t.Fatal(err)
	}
	if err := a.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	engine.LastStream().AdvanceTo(3 * time.Second)

	ev := awaitEvent(t, events, "position event", func(ev player.Event) bool {
		pe, ok := ev.(player.PositionEvent)
		return ok && pe.Position == 3*time.Second
	})
	pe := ev.(player.PositionEvent)
	if pe.TrackID != track.ID || pe.Duration != 10*time.Second {
		t.Errorf("position event = %+v", pe)
	}
}

// TestAdapterReplaceTrackClosesOldStream tests teardown ordering: the
// replaced stream is closed and its telemetry stops.
func TestAdapterReplaceTrackClosesOldStream(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck

	first := player.NewTrack("https://example.com/j1.mp3", "Genesis 10", "Test")
	if err := a.Load(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	firstStream := engine.LastStream()

	second := player.NewTrack("https://example.com/j2.mp3", "Genesis 11", "Test")
	if err := a.Load(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	if !firstStream.Closed() {
		t.Error("replaced stream was not closed")
	}
	if cur, ok := a.Current(); !ok || cur.ID != second.ID {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}

	// End-of-track on the replaced stream must not publish an event for
	// the new track.
	events := bus.Subscribe(8)
	firstStream.FinishTrack()
	select {
	case ev := <-events:
		if eot, ok := ev.(player.EndOfTrackEvent); ok && eot.TrackID == second.ID {
			t.Error("replaced stream ended the new track")
		}
	case <-time.After(100 * time.Millisecond):
	}
}

// TestSilentEnginePlayUnavailable tests the no-device strategy: loading
// succeeds, playing reports engine unavailability.
func TestSilentEnginePlayUnavailable(t *testing.T) {
	engine := SilentEngine{}
	if engine.Available() {
		t.Fatal("silent engine must report unavailable")
	}

	stream, err := engine.Open(context.Background(), "https://example.com/k.mp3", OpenOptions{})
	if err != nil {
		t.Fatalf("Open() = %v, want nil (text stays browsable)", err)
	}
	if err := stream.Play(); !errors.Is(err, player.ErrEngineUnavailable) {
		t.Errorf("Play() = %v, want ErrEngineUnavailable", err)
	}
	if stream.Playing() {
		t.Error("silent stream must never report playing")
	}
}

// TestMediaSessionRemoteStop tests the robust remote-stop wiring.
func TestMediaSessionRemoteStop(t *testing.T) {
	session := NewMediaSession()

	var got []RemoteCommand
	session.OnRemote(func(cmd RemoteCommand, _ time.Duration) {
		got = append(got, cmd)
	})

	session.HandleRemote(RemotePlay, 0)
	session.HandleRemote(RemoteStop, 42*time.Second)

	if len(got) != 2 || got[0] != RemotePlay || got[1] != RemoteStop {
		t.Errorf("remote commands = %v", got)
	}
}

// TestBindCoordinatorRoutesNavigation tests that remote next and
// previous reach the chapter navigation callback as deltas while the
// playback commands still go to the coordinator.
func TestBindCoordinatorRoutesNavigation(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck
	coordinator := player.NewCoordinator(a, bus, player.NewIntentClock(), testConfig())
	defer coordinator.Close()

	session := NewMediaSession()
	var deltas []int
	session.BindCoordinator(coordinator, func(delta int) {
		deltas = append(deltas, delta)
	})

	session.HandleRemote(RemoteNext, 0)
	session.HandleRemote(RemotePrevious, 0)
	session.HandleRemote(RemotePrevious, 0)

	if len(deltas) != 3 || deltas[0] != 1 || deltas[1] != -1 || deltas[2] != -1 {
		t.Errorf("navigation deltas = %v, want [1 -1 -1]", deltas)
	}
}

// TestBindCoordinatorNilNavigation tests that next and previous are
// ignored when no navigation callback is bound.
func TestBindCoordinatorNilNavigation(t *testing.T) {
	engine := NewMockEngine()
	bus := player.NewBus()
	defer bus.Close()

	a := NewAdapter(engine, bus, nil, testConfig())
	defer a.Close() //nolint:errcheck
	coordinator := player.NewCoordinator(a, bus, player.NewIntentClock(), testConfig())
	defer coordinator.Close()

	session := NewMediaSession()
	session.BindCoordinator(coordinator, nil)

	session.HandleRemote(RemoteNext, 0)
	session.HandleRemote(RemotePrevious, 0)
}

// TestMediaSessionNowPlaying tests metadata propagation.
func TestMediaSessionNowPlaying(t *testing.T) {
	session := NewMediaSession()
	track := player.Track{
		ID:       uuid.New(),
		Title:    "1 Peter 3",
		Artist:   "Kinyarwanda Bible",
		Duration: 3 * time.Minute,
	}
	session.SetNowPlaying(track)

	now := session.Current()
	if now.Title != "1 Peter 3" || now.Duration != 3*time.Minute {
		t.Errorf("Current() = %+v", now)
	}
}
