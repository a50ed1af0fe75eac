package bgloop

import (
	"context"
	"testing"
	"time"

	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/transport"
)

func testConfig() player.Config {
	cfg := player.DefaultConfig()
	cfg.VolumeDebounce = 10 * time.Millisecond
	return cfg
}

const loopURL = "https://example.com/music/gentle_piano.mp3"

// TestControllerSelectionStartsLoop tests loading and looping a track.
func TestControllerSelectionStartsLoop(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	sel := player.BackgroundSelection{TrackID: "gentle_piano", URL: loopURL, Volume: 0.3}
	if err := c.SetSelection(context.Background(), sel); err != nil {
		t.Fatalf("SetSelection() = %v", err)
	}

	if !c.Playing() {
		t.Error("loop should be playing after selection")
	}
	stream := engine.LastStream()
	if !stream.Opts.Loop {
		t.Error("stream must be opened in loop mode")
	}
	if stream.Opts.Volume != 0.3 {
		t.Errorf("opened volume = %v, want 0.3", stream.Opts.Volume)
	}
}

// TestControllerSameURLNoReload tests that re-selecting the playing track
// adjusts volume without reopening the stream.
func TestControllerSameURLNoReload(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	sel := player.BackgroundSelection{TrackID: "gentle_piano", URL: loopURL, Volume: 0.3}
	if err := c.SetSelection(context.Background(), sel); err != nil {
		t.Fatal(err)
	}

	sel.Volume = 0.5
	if err := c.SetSelection(context.Background(), sel); err != nil {
		t.Fatal(err)
	}

	if engine.OpenCount() != 1 {
		t.Errorf("OpenCount() = %d, want 1 (no reload for same URL)", engine.OpenCount())
	}
	if v := engine.LastStream().Volume(); v != 0.5 {
		t.Errorf("volume = %v, want 0.5", v)
	}
}

// TestControllerSelectionNoneStops tests the "none" selection.
func TestControllerSelectionNoneStops(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	sel := player.BackgroundSelection{TrackID: "gentle_piano", URL: loopURL, Volume: 0.3}
	if err := c.SetSelection(context.Background(), sel); err != nil {
		t.Fatal(err)
	}
	stream := engine.LastStream()

	if err := c.SetSelection(context.Background(), player.BackgroundSelection{TrackID: "none"}); err != nil {
		t.Fatal(err)
	}

	if c.Playing() {
		t.Error("loop should stop on the none selection")
	}
	if !stream.Closed() {
		t.Error("stream should be closed on the none selection")
	}
}

// TestControllerSoftPause tests that a narration pause keeps the stream
// alive so resume has no reload latency, while a resume restarts it.
func TestControllerSoftPause(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	ctx := context.Background()
	if err := c.Sync(ctx, true, loopURL, 0.3); err != nil {
		t.Fatal(err)
	}
	if !c.Playing() {
		t.Fatal("loop should run while narration plays")
	}
	stream := engine.LastStream()

	// Narration pauses: the loop soft-pauses, stream retained.
	if err := c.Sync(ctx, false, loopURL, 0.3); err != nil {
		t.Fatal(err)
	}
	if c.Playing() {
		t.Error("loop should be paused while narration is paused")
	}
	if stream.Closed() {
		t.Error("soft pause must keep the stream open")
	}

	// Narration resumes: same stream resumes, no reload.
	if err := c.Sync(ctx, true, loopURL, 0.3); err != nil {
		t.Fatal(err)
	}
	if !c.Playing() {
		t.Error("loop should resume with narration")
	}
	if engine.OpenCount() != 1 {
		t.Errorf("OpenCount() = %d, want 1", engine.OpenCount())
	}
}

// TestControllerSyncSwitchesTrack tests that a changed URL reloads.
func TestControllerSyncSwitchesTrack(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	ctx := context.Background()
	if err := c.Sync(ctx, true, loopURL, 0.3); err != nil {
		t.Fatal(err)
	}
	first := engine.LastStream()

	other := "https://example.com/music/soft_strings.mp3"
	if err := c.Sync(ctx, true, other, 0.3); err != nil {
		t.Fatal(err)
	}

	if !first.Closed() {
		t.Error("previous loop stream should be closed on track switch")
	}
	if c.URL() != other {
		t.Errorf("URL() = %q, want %q", c.URL(), other)
	}
	if engine.OpenCount() != 2 {
		t.Errorf("OpenCount() = %d, want 2", engine.OpenCount())
	}
}

// TestControllerStopIsFullTeardown tests Stop against soft pause.
func TestControllerStopIsFullTeardown(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	if err := c.Sync(context.Background(), true, loopURL, 0.3); err != nil {
		t.Fatal(err)
	}
	stream := engine.LastStream()

	c.Stop()

	if c.Playing() {
		t.Error("loop should not be playing after Stop")
	}
	if !stream.Closed() {
		t.Error("Stop must close the stream")
	}
	if c.URL() != "" {
		t.Errorf("URL() = %q, want empty after Stop", c.URL())
	}
}

// TestControllerVolumeCoalescing tests that a burst of volume changes
// reaches the stream as a single application of the final value.
func TestControllerVolumeCoalescing(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	defer c.Close()

	if err := c.Sync(context.Background(), true, loopURL, 0.3); err != nil {
		t.Fatal(err)
	}
	stream := engine.LastStream()
	before := stream.VolumeCalls()

	for _, v := range []float64{0.31, 0.35, 0.42, 0.5, 0.6} {
		c.SetVolume(v)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if stream.Volume() == 0.6 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if stream.Volume() != 0.6 {
		t.Fatalf("final volume = %v, want 0.6", stream.Volume())
	}
	if calls := stream.VolumeCalls() - before; calls > 2 {
		t.Errorf("volume applied %d times for one burst, want coalesced", calls)
	}
}

// TestClampLoopVolume tests the near-silent floor.
func TestClampLoopVolume(t *testing.T) {
	tests := []struct {
		in, out float64
	}{
		{-1, 0},
		{0, 0},
		{0.005, nearSilentFloor},
		{0.05, 0.05},
		{0.3, 0.3},
		{1.5, 1},
	}
	for _, tt := range tests {
		if got := clampLoopVolume(tt.in); got != tt.out {
			t.Errorf("clampLoopVolume(%v) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

// TestControllerSyncAfterClose tests the shutdown guard.
func TestControllerSyncAfterClose(t *testing.T) {
	engine := transport.NewMockEngine()
	c := NewController(engine, testConfig())
	c.Close()

	if err := c.Sync(context.Background(), true, loopURL, 0.3); err != player.ErrShutdown {
		t.Errorf("Sync() after Close = %v, want ErrShutdown", err)
	}
}
