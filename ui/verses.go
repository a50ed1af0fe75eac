package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kinyabible/audiobible/player"
)

var (
	verseNumberStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				Bold(true)

	currentVerseStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFDF5D")).
				Bold(true)

	untimedVerseStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#AAAAAA"))

	selectedVerseStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF87D7"))
)

// verseView renders the chapter's verses inside a viewport and answers
// the visibility questions the autoscroll controller asks. The
// controller calls it from engine goroutines, so the geometry it reads
// is mirrored under a lock instead of touching the viewport directly.
type verseView struct {
	viewport viewport.Model
	verses   []player.Verse
	current  string
	selected int
	width    int

	bridge *Bridge

	mu        sync.Mutex
	top       int
	height    int
	lineOf    []int
	lineCount []int
	total     int
}

func newVerseView(bridge *Bridge) *verseView {
	return &verseView{
		viewport: viewport.New(0, 0),
		bridge:   bridge,
	}
}

func (v *verseView) setSize(width, height int) {
	v.width = width
	v.viewport.Width = width
	v.viewport.Height = height
	v.rerender()
}

func (v *verseView) setVerses(verses []player.Verse) {
	v.verses = verses
	v.current = ""
	v.selected = 0
	v.viewport.GotoTop()
	v.rerender()
}

// moveSelection shifts the selection cursor and keeps it on screen.
func (v *verseView) moveSelection(delta int) {
	next := v.selected + delta
	if next < 0 {
		next = 0
	}
	if next >= len(v.verses) {
		next = len(v.verses) - 1
	}
	if next == v.selected || next < 0 {
		return
	}
	v.selected = next
	v.rerender()
	v.ensureVisible(next)
}

// ensureVisible scrolls just enough to bring the verse on screen.
func (v *verseView) ensureVisible(index int) {
	v.mu.Lock()
	ok := index >= 0 && index < len(v.lineOf)
	var first, last int
	if ok {
		first = v.lineOf[index]
		last = first + v.lineCount[index] - 1
	}
	v.mu.Unlock()
	if !ok {
		return
	}

	if first < v.viewport.YOffset {
		v.viewport.SetYOffset(first)
	} else if last >= v.viewport.YOffset+v.viewport.Height {
		v.viewport.SetYOffset(last - v.viewport.Height + 1)
	}
	v.syncGeometry()
}

func (v *verseView) setCurrent(number string) {
	if v.current == number {
		return
	}
	v.current = number
	v.rerender()
}

// rerender rebuilds the viewport content and the per-verse line table.
func (v *verseView) rerender() {
	width := v.width
	if width <= 0 {
		return
	}
	textWidth := width - 2
	if textWidth < 10 {
		textWidth = 10
	}

	var sb strings.Builder
	lineOf := make([]int, len(v.verses))
	lineCount := make([]int, len(v.verses))
	line := 0

	for i, verse := range v.verses {
		number := verseNumberStyle.Render(verse.Number)
		body := wordwrap.String(verse.Text, textWidth)
		switch {
		case verse.Number == v.current:
			number = currentVerseStyle.Render("▶ " + verse.Number)
			body = currentVerseStyle.Render(body)
		case !verse.Timed:
			body = untimedVerseStyle.Render(body)
		}
		if i == v.selected {
			number = selectedVerseStyle.Render("› ") + number
		}

		block := number + "\n" + body + "\n"
		n := strings.Count(block, "\n") + 1
		lineOf[i] = line
		lineCount[i] = n
		line += n

		sb.WriteString(block)
		sb.WriteString("\n")
	}

	v.viewport.SetContent(sb.String())

	v.mu.Lock()
	v.lineOf = lineOf
	v.lineCount = lineCount
	v.total = line
	v.top = v.viewport.YOffset
	v.height = v.viewport.Height
	v.mu.Unlock()
}

// syncGeometry mirrors the viewport position for off-goroutine readers.
// Call after any viewport scroll.
func (v *verseView) syncGeometry() {
	v.mu.Lock()
	v.top = v.viewport.YOffset
	v.height = v.viewport.Height
	v.mu.Unlock()
}

// Visible reports whether any line of the verse is on screen.
func (v *verseView) Visible(index int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if index < 0 || index >= len(v.lineOf) {
		return false
	}
	first := v.lineOf[index]
	last := first + v.lineCount[index] - 1
	return last >= v.top && first < v.top+v.height
}

// Centered reports whether the verse sits in the middle band of the
// screen, where a further scroll would not help the reader.
func (v *verseView) Centered(index int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if index < 0 || index >= len(v.lineOf) || v.height <= 0 {
		return false
	}
	mid := v.top + v.height/2
	first := v.lineOf[index]
	last := first + v.lineCount[index] - 1
	band := v.height / 4
	return first <= mid+band && last >= mid-band
}

// ScrollTo asks the UI goroutine to center the verse.
func (v *verseView) ScrollTo(index int) {
	v.bridge.Send(scrollToVerseMsg{index: index})
}

// centerOn scrolls the viewport so the verse sits mid-screen. Runs on
// the UI goroutine.
func (v *verseView) centerOn(index int) {
	v.mu.Lock()
	ok := index >= 0 && index < len(v.lineOf)
	var target int
	if ok {
		target = v.lineOf[index] - v.viewport.Height/2 + v.lineCount[index]/2
	}
	v.mu.Unlock()
	if !ok {
		return
	}

	if target < 0 {
		target = 0
	}
	v.viewport.SetYOffset(target)
	v.syncGeometry()
}

func (v *verseView) View() string {
	return v.viewport.View()
}
