// Package autoscroll decides when the verse list follows narration. It
// keeps the playing verse centered without ever fighting a user who is
// scrolling or seeking.
package autoscroll

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/versesync"
)

// ListView is the verse list's scroll surface. Visibility comes from the
// list's own viewability telemetry; the controller never measures pixels
// itself.
type ListView interface {
	// Visible reports whether any part of the verse at index intersects
	// the viewport.
	Visible(index int) bool

	// Centered reports whether the verse at index sits within the center
	// tolerance band.
	Centered(index int) bool

	// ScrollTo centers the verse at index.
	ScrollTo(index int)
}

// Narrator is the slice of the playback engine that verse taps need.
type Narrator interface {
	SeekTo(pos time.Duration)
	Play()
}

// Controller turns current-verse changes into scroll decisions.
type Controller struct {
	cfg    player.Config
	intent *player.IntentClock
	view   ListView
	sync   *versesync.Engine
	play   Narrator
	now    func() time.Time

	limiter *rate.Limiter

	mu          sync.Mutex
	lastVerse   string
	lastAutoAt  time.Time
	returnVerse string
	returnTimer *time.Timer
}

// NewController creates an autoscroll controller. Register its
// OnVerseChange with the sync engine to activate it.
func NewController(view ListView, play Narrator, syncEngine *versesync.Engine, intent *player.IntentClock, cfg player.Config) *Controller {
	return &Controller{
		cfg:     cfg,
		intent:  intent,
		view:    view,
		sync:    syncEngine,
		play:    play,
		now:     time.Now,
		limiter: rate.NewLimiter(rate.Every(cfg.CenterThrottle), 1),
	}
}

// SetClock replaces the time source. For tests.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// OnVerseChange handles a change of the narrated verse. It either centers
// the verse, suppresses the scroll, or arms the return affordance.
func (c *Controller) OnVerseChange(verse string) {
	if verse == "" {
		c.clearReturn()
		return
	}

	index := c.sync.Resolver().Index(verse)
	if index < 0 {
		return
	}

	// The user owns the list right after seeking or scrolling.
	if c.intent.SeekWithin(c.cfg.SeekSuppress) || c.intent.ScrollWithin(c.cfg.ScrollSuppress) {
		if !c.view.Visible(index) {
			c.armReturn(verse)
		}
		log.Debug("autoscroll suppressed by user intent", "verse", verse)
		return
	}

	c.mu.Lock()
	sameVerse := verse == c.lastVerse && c.now().Sub(c.lastAutoAt) < c.cfg.SameVerseWindow
	c.mu.Unlock()
	if sameVerse {
		return
	}

	if c.view.Centered(index) {
		return
	}

	if !c.view.Visible(index) && c.returnArmed() {
		// The user navigated elsewhere; keep offering the affordance
		// rather than forcing the list back.
		c.armReturn(verse)
		return
	}

	if !c.limiter.Allow() {
		return
	}

	c.scrollTo(verse, index)
}

// TapVerse handles the user tapping a verse: seek narration to its start,
// force playback, and center it optimistically ahead of the next position
// event.
func (c *Controller) TapVerse(index int) {
	v, ok := c.sync.Resolver().At(index)
	if !ok {
		return
	}

	c.intent.MarkSeek()
	if v.Timed {
		c.play.SeekTo(v.Start)
	}
	c.play.Play()

	c.clearReturn()
	c.scrollTo(v.Number, index)
}

// ReturnAvailable reports whether the return-to-playing-verse affordance
// should be shown.
func (c *Controller) ReturnAvailable() bool {
	return c.returnArmed()
}

// Return scrolls back to the playing verse and clears the affordance.
func (c *Controller) Return() {
	c.mu.Lock()
	verse := c.returnVerse
	c.mu.Unlock()
	if verse == "" {
		verse = c.sync.CurrentVerse()
	}
	c.clearReturn()

	if verse == "" {
		return
	}
	if index := c.sync.Resolver().Index(verse); index >= 0 {
		c.scrollTo(verse, index)
	}
}

// Close cancels any pending return timer.
func (c *Controller) Close() {
	c.clearReturn()
}

func (c *Controller) scrollTo(verse string, index int) {
	c.mu.Lock()
	c.lastVerse = verse
	c.lastAutoAt = c.now()
	c.mu.Unlock()

	log.Debug("autoscroll centering", "verse", verse, "index", index)
	c.view.ScrollTo(index)
}

// armReturn offers the affordance and schedules the automatic return after
// the grace period, unless the user keeps scrolling.
func (c *Controller) armReturn(verse string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.returnVerse = verse
	if c.returnTimer != nil {
		return
	}
	c.returnTimer = time.AfterFunc(c.cfg.ReturnGrace, func() {
		if c.intent.ScrollWithin(c.cfg.ScrollSuppress) {
			// Still the user's list; retry after another grace period.
			c.mu.Lock()
			c.returnTimer = nil
			verse := c.returnVerse
			c.mu.Unlock()
			if verse != "" {
				c.armReturn(verse)
			}
			return
		}
		c.Return()
	})
}

func (c *Controller) returnArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.returnVerse != ""
}

func (c *Controller) clearReturn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.returnVerse = ""
	if c.returnTimer != nil {
		c.returnTimer.Stop()
		c.returnTimer = nil
	}
}
