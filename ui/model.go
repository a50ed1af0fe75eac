// Package ui is the terminal reading view: the verse list with the
// narrated verse highlighted, a playback status bar, and key bindings
// for playback, chapter navigation, mixing, and sync correction.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/kinyabible/audiobible/content"
	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/autoscroll"
	"github.com/kinyabible/audiobible/player/mix"
	"github.com/kinyabible/audiobible/player/transport"
	"github.com/kinyabible/audiobible/player/versesync"
	"github.com/kinyabible/audiobible/settings"
)

const seekStep = 10 * time.Second

// Deps are the engine components the reading view drives.
type Deps struct {
	Client      *content.Client
	Catalog     *content.Catalog
	Music       *content.MusicCatalog
	Coordinator *player.Coordinator
	Sync        *versesync.Engine
	Mixer       *mix.Supervisor
	Settings    *settings.Store
	Session     *transport.MediaSession
	Intent      *player.IntentClock
	Config      player.Config
	Logger      *log.Logger
}

// Model is the bubbletea model for the reading view.
type Model struct {
	ctx  context.Context
	deps Deps
	keys keyMap

	bridge   *Bridge
	view     *verseView
	status   *statusDisplay
	scroller *autoscroll.Controller

	book    content.Book
	chapter int
	loaded  *content.Chapter
	loading bool
	err     error

	width  int
	height int
	ready  bool
}

// NewModel wires the reading view to the engine. Callbacks from the
// sync engine and coordinator are forwarded through the bridge so all
// model mutation happens on the program goroutine.
func NewModel(ctx context.Context, deps Deps, bridge *Bridge, book content.Book, chapter int) *Model {
	view := newVerseView(bridge)
	scroller := autoscroll.NewController(view, deps.Coordinator, deps.Sync, deps.Intent, deps.Config)

	m := &Model{
		ctx:      ctx,
		deps:     deps,
		keys:     defaultKeyMap(),
		bridge:   bridge,
		view:     view,
		status:   newStatusDisplay(),
		scroller: scroller,
		book:     book,
		chapter:  chapter,
	}

	deps.Sync.OnVerseChange(func(verse string) {
		scroller.OnVerseChange(verse)
		bridge.Send(verseChangedMsg{verse: verse})
	})
	deps.Coordinator.OnChange(func(state player.PlaybackState) {
		bridge.Send(playbackChangedMsg{state: state})
	})
	deps.Settings.OnChange(func(settings.Settings) {
		bridge.Send(settingsReloadedMsg{})
	})
	if deps.Session != nil {
		deps.Session.BindCoordinator(deps.Coordinator, func(delta int) {
			bridge.Send(remoteChapterMsg{delta: delta})
		})
	}

	return m
}

// Bridge returns the bridge to attach to the running program.
func (m *Model) Bridge() *Bridge {
	return m.bridge
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		loadChapterCmd(m.ctx, m.deps.Client, m.book, m.chapter),
		statusTickCmd(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.setSize(msg.Width, msg.Height-3)
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chapterLoadedMsg:
		return m.handleChapterLoaded(msg)

	case playbackChangedMsg:
		m.status.update(msg.state)
		m.status.returnHot = m.scroller.ReturnAvailable()
		m.err = msg.state.Err
		return m, nil

	case verseChangedMsg:
		m.view.setCurrent(msg.verse)
		m.status.returnHot = m.scroller.ReturnAvailable()
		return m, nil

	case scrollToVerseMsg:
		m.view.centerOn(msg.index)
		return m, nil

	case remoteChapterMsg:
		return m.gotoChapter(msg.delta)

	case settingsReloadedMsg:
		m.applySettings()
		return m, nil

	case statusTickMsg:
		m.status.update(m.deps.Coordinator.State())
		m.status.offset = m.deps.Sync.State().Offset
		m.status.returnHot = m.scroller.ReturnAvailable()
		return m, statusTickCmd()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Toggle):
		m.deps.Coordinator.Toggle()

	case key.Matches(msg, k.TapVerse):
		m.scroller.TapVerse(m.view.selected)

	case key.Matches(msg, k.Up):
		m.deps.Intent.MarkScroll()
		m.view.moveSelection(-1)

	case key.Matches(msg, k.Down):
		m.deps.Intent.MarkScroll()
		m.view.moveSelection(1)

	case key.Matches(msg, k.PageUp):
		m.deps.Intent.MarkScroll()
		m.view.viewport.HalfViewUp()
		m.view.syncGeometry()

	case key.Matches(msg, k.PageDown):
		m.deps.Intent.MarkScroll()
		m.view.viewport.HalfViewDown()
		m.view.syncGeometry()

	case key.Matches(msg, k.SeekBack):
		m.deps.Coordinator.SeekTo(m.deps.Coordinator.State().Position - seekStep)

	case key.Matches(msg, k.SeekForward):
		m.deps.Coordinator.SeekTo(m.deps.Coordinator.State().Position + seekStep)

	case key.Matches(msg, k.NextChapter):
		return m.gotoChapter(1)

	case key.Matches(msg, k.PrevChapter):
		return m.gotoChapter(-1)

	case key.Matches(msg, k.SyncEarlier):
		m.status.offset = m.deps.Sync.NudgeOffset(-1)

	case key.Matches(msg, k.SyncLater):
		m.status.offset = m.deps.Sync.NudgeOffset(1)

	case key.Matches(msg, k.SyncReset):
		m.deps.Sync.ResetOffset()
		m.status.offset = 0

	case key.Matches(msg, k.Music):
		m.cycleMusic()

	case key.Matches(msg, k.VolumeUp):
		m.adjustMaster(0.1)

	case key.Matches(msg, k.VolumeDown):
		m.adjustMaster(-0.1)

	case key.Matches(msg, k.MusicVolUp):
		m.adjustBackground(0.05)

	case key.Matches(msg, k.MusicVolDown):
		m.adjustBackground(-0.05)

	case key.Matches(msg, k.RateUp):
		m.adjustRate(0.25)

	case key.Matches(msg, k.RateDown):
		m.adjustRate(-0.25)

	case key.Matches(msg, k.Return):
		m.scroller.Return()
		m.status.returnHot = false
	}
	return m, nil
}

func (m *Model) handleChapterLoaded(msg chapterLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		m.deps.Logger.Error("chapter load failed", "book", m.book.Name, "chapter", m.chapter, "error", msg.err)
		return m, nil
	}

	m.err = nil
	m.loaded = msg.chapter
	m.book = msg.chapter.Book
	m.chapter = msg.chapter.Number
	m.view.setVerses(msg.chapter.Verses)
	m.deps.Sync.SetVerses(msg.chapter.Verses)
	m.status.title = msg.chapter.Track.Title

	// Keep playing across chapter boundaries.
	if m.deps.Coordinator.State().DesiredPlaying {
		m.deps.Coordinator.LoadAndPlay(msg.chapter.Track)
	} else {
		m.deps.Coordinator.Load(msg.chapter.Track)
	}

	if err := m.deps.Settings.Update(func(s *settings.Settings) {
		s.LastBookID = m.book.ID
		s.LastChapter = m.chapter
	}); err != nil {
		m.deps.Logger.Warn("could not save reading position", "error", err)
	}

	return m, prefetchCmd(m.ctx, m.deps.Client, m.book, m.chapter)
}

// gotoChapter moves forward or back one chapter, crossing book
// boundaries.
func (m *Model) gotoChapter(delta int) (tea.Model, tea.Cmd) {
	book := m.book
	chapter := m.chapter + delta

	if chapter > book.Chapters {
		next, ok := m.deps.Catalog.Next(book)
		if !ok {
			return m, nil
		}
		book, chapter = next, 1
	} else if chapter < 1 {
		prev, err := m.deps.Catalog.ByID(book.ID - 1)
		if err != nil {
			return m, nil
		}
		book, chapter = prev, prev.Chapters
	}

	m.book = book
	m.chapter = chapter
	m.loading = true
	return m, loadChapterCmd(m.ctx, m.deps.Client, book, chapter)
}

func (m *Model) cycleMusic() {
	tracks := m.deps.Music.Tracks()
	current := m.deps.Settings.Current().MusicID
	next := tracks[0]
	for i, t := range tracks {
		if t.ID == current {
			next = tracks[(i+1)%len(tracks)]
			break
		}
	}

	if err := m.deps.Settings.Update(func(s *settings.Settings) {
		s.MusicID = next.ID
	}); err != nil {
		m.deps.Logger.Warn("could not save music selection", "error", err)
	}
	m.deps.Mixer.SetSelection(m.deps.Music.Selection(next.ID, m.deps.Settings.Current().BackgroundVolume))
	if next.ID == content.MusicNone {
		m.status.musicName = ""
	} else {
		m.status.musicName = next.Name
	}
}

func (m *Model) adjustMaster(delta float64) {
	v := player.ClampVolume(m.deps.Settings.Current().MasterVolume + delta)
	m.deps.Mixer.SetMasterVolume(v)
	m.persistVolumes()
}

func (m *Model) adjustBackground(delta float64) {
	v := player.ClampVolume(m.deps.Settings.Current().BackgroundVolume + delta)
	m.deps.Mixer.SetBackgroundVolume(v)
	m.persistVolumes()
}

func (m *Model) persistVolumes() {
	narration, background, master := m.deps.Mixer.Volumes()
	if err := m.deps.Settings.Update(func(s *settings.Settings) {
		s.NarrationVolume = narration
		s.BackgroundVolume = background
		s.MasterVolume = master
	}); err != nil {
		m.deps.Logger.Warn("could not save volumes", "error", err)
	}
}

func (m *Model) adjustRate(delta float64) {
	rate := player.ClampRate(m.deps.Coordinator.State().Rate + delta)
	m.deps.Coordinator.SetRate(rate)
	if err := m.deps.Settings.Update(func(s *settings.Settings) {
		s.Rate = rate
	}); err != nil {
		m.deps.Logger.Warn("could not save rate", "error", err)
	}
}

// applySettings pushes externally edited settings into the engine.
func (m *Model) applySettings() {
	s := m.deps.Settings.Current()
	m.deps.Mixer.SetNarrationVolume(s.NarrationVolume)
	m.deps.Mixer.SetBackgroundVolume(s.BackgroundVolume)
	m.deps.Mixer.SetMasterVolume(s.MasterVolume)
	m.deps.Coordinator.SetRate(s.Rate)
	m.deps.Mixer.SetSelection(m.deps.Music.Selection(s.MusicID, s.BackgroundVolume))
	track := m.deps.Music.ByID(s.MusicID)
	if track.ID == content.MusicNone {
		m.status.musicName = ""
	} else {
		m.status.musicName = track.Name
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "\n  loading..."
	}

	var body string
	switch {
	case m.loading:
		body = fmt.Sprintf("\n  loading %s %d...", m.book.Name, m.chapter)
	case m.loaded == nil && m.err != nil:
		body = "\n  " + lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(m.err.Error())
	default:
		body = m.view.View()
	}

	bar := m.status.Render(m.width)
	progress := m.status.ProgressBar(m.width)

	return lipgloss.JoinVertical(lipgloss.Left, body, progress, bar)
}

// Close releases the view's engine hooks.
func (m *Model) Close() {
	m.scroller.Close()
}
