package versesync

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kinyabible/audiobible/player"
)

func newTestEngine(t *testing.T) (*Engine, *player.Bus) {
	t.Helper()
	bus := player.NewBus()
	e := NewEngine(bus, player.DefaultConfig())
	t.Cleanup(func() {
		e.Close()
		bus.Close()
	})
	return e, bus
}

func waitForVerse(t *testing.T, e *Engine, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.CurrentVerse() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("current verse = %q, want %q", e.CurrentVerse(), want)
}

func chapterVerses() []player.Verse {
	return []player.Verse{
		verse("1", 0, 10*time.Second),
		verse("2", 10*time.Second, 20*time.Second),
		verse("3", 20*time.Second, 30*time.Second),
		verse("4", 35*time.Second, 45*time.Second),
	}
}

func TestEngineFollowsPosition(t *testing.T) {
	e, bus := newTestEngine(t)
	e.SetVerses(chapterVerses())

	id := uuid.New()
	steps := []struct {
		pos   time.Duration
		verse string
	}{
		{2 * time.Second, "1"},
		{12 * time.Second, "2"},
		{25 * time.Second, "3"},
		{40 * time.Second, "4"},
		{50 * time.Second, ""},
	}
	for _, step := range steps {
		bus.Publish(player.PositionEvent{TrackID: id, Position: step.pos})
		waitForVerse(t, e, step.verse)
	}
}

func TestEngineOffsetShiftsResolution(t *testing.T) {
	e, bus := newTestEngine(t)
	e.SetVerses(chapterVerses())

	// Default step is 100ms; push the adjusted position over the verse
	// 1/2 boundary from just underneath it.
	got := e.NudgeOffset(1)
	if got != 100*time.Millisecond {
		t.Fatalf("NudgeOffset(1) = %v, want 100ms", got)
	}

	bus.Publish(player.PositionEvent{Position: 9950 * time.Millisecond})
	waitForVerse(t, e, "2")

	e.ResetOffset()
	if off := e.State().Offset; off != 0 {
		t.Fatalf("offset after reset = %v, want 0", off)
	}
	bus.Publish(player.PositionEvent{Position: 9950 * time.Millisecond})
	waitForVerse(t, e, "1")
}

func TestEngineNudgeBothDirections(t *testing.T) {
	e, _ := newTestEngine(t)

	if got := e.NudgeOffset(-1); got != -100*time.Millisecond {
		t.Errorf("NudgeOffset(-1) = %v, want -100ms", got)
	}
	if got := e.NudgeOffset(-1); got != -200*time.Millisecond {
		t.Errorf("second NudgeOffset(-1) = %v, want -200ms", got)
	}
	if got := e.NudgeOffset(1); got != -100*time.Millisecond {
		t.Errorf("NudgeOffset(1) = %v, want -100ms", got)
	}
	if got := e.NudgeOffset(0); got != -100*time.Millisecond {
		t.Errorf("NudgeOffset(0) = %v, want unchanged -100ms", got)
	}
}

func TestEngineResetsOnTrackBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		event player.Event
	}{
		{"end of track", player.EndOfTrackEvent{}},
		{"new track loaded", player.LoadedEvent{Duration: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, bus := newTestEngine(t)
			e.SetVerses(chapterVerses())

			bus.Publish(player.PositionEvent{Position: 12 * time.Second})
			waitForVerse(t, e, "2")

			bus.Publish(tt.event)
			waitForVerse(t, e, "")
		})
	}
}

func TestEngineSetVersesClearsCurrent(t *testing.T) {
	e, bus := newTestEngine(t)
	e.SetVerses(chapterVerses())

	bus.Publish(player.PositionEvent{Position: 2 * time.Second})
	waitForVerse(t, e, "1")

	e.SetVerses(nil)
	if got := e.CurrentVerse(); got != "" {
		t.Errorf("current verse after SetVerses = %q, want empty", got)
	}
}

func TestEngineNotifiesOnlyOnChange(t *testing.T) {
	e, bus := newTestEngine(t)
	e.SetVerses(chapterVerses())

	var mu sync.Mutex
	var calls []string
	e.OnVerseChange(func(v string) {
		mu.Lock()
		calls = append(calls, v)
		mu.Unlock()
	})

	// Three positions inside verse 1, then one inside verse 2.
	for _, pos := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 12 * time.Second} {
		bus.Publish(player.PositionEvent{Position: pos})
	}
	waitForVerse(t, e, "2")

	mu.Lock()
	defer mu.Unlock()
	want := []string{"1", "2"}
	if len(calls) != len(want) {
		t.Fatalf("callback fired %d times (%v), want %d", len(calls), calls, len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}
