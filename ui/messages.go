package ui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kinyabible/audiobible/content"
	"github.com/kinyabible/audiobible/player"
)

// Bridge forwards engine callbacks into the bubbletea program. Callbacks
// fire on engine goroutines before the program exists, so messages are
// buffered until Attach is called.
type Bridge struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []tea.Msg
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to a running program and flushes anything
// buffered before startup.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, msg := range pending {
		send(msg)
	}
}

// Send delivers a message to the program, buffering if unattached.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	if send == nil {
		b.pending = append(b.pending, msg)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	send(msg)
}

// playbackChangedMsg carries a playback state snapshot.
type playbackChangedMsg struct {
	state player.PlaybackState
}

// verseChangedMsg carries the verse the narration has moved to.
type verseChangedMsg struct {
	verse string
}

// scrollToVerseMsg asks the view to bring a verse into center.
type scrollToVerseMsg struct {
	index int
}

// chapterLoadedMsg is the result of an async chapter fetch.
type chapterLoadedMsg struct {
	chapter *content.Chapter
	err     error
}

// remoteChapterMsg carries a chapter delta from a remote next or
// previous command.
type remoteChapterMsg struct {
	delta int
}

// settingsReloadedMsg is sent when the settings file changes on disk.
type settingsReloadedMsg struct{}

// statusTickMsg drives periodic status bar refreshes while playing.
type statusTickMsg time.Time

// loadChapterCmd fetches a chapter off the UI goroutine.
func loadChapterCmd(ctx context.Context, client *content.Client, b content.Book, chapter int) tea.Cmd {
	return func() tea.Msg {
		ch, err := client.Fetch(ctx, b, chapter)
		return chapterLoadedMsg{chapter: ch, err: err}
	}
}

// prefetchCmd warms the cache for the following chapter.
func prefetchCmd(ctx context.Context, client *content.Client, b content.Book, chapter int) tea.Cmd {
	return func() tea.Msg {
		client.Prefetch(ctx, b, chapter)
		return nil
	}
}

// statusTickCmd schedules the next status refresh.
func statusTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}
