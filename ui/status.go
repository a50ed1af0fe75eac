package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/kinyabible/audiobible/player"
)

// statusDisplay renders the playback status bar: state icon, track
// title, position, progress, and the background music indicator.
type statusDisplay struct {
	state     player.PlaybackState
	title     string
	musicName string
	offset    time.Duration
	returnHot bool
}

func newStatusDisplay() *statusDisplay {
	return &statusDisplay{}
}

func (s *statusDisplay) update(state player.PlaybackState) {
	s.state = state
}

func (s *statusDisplay) stateColor() lipgloss.Color {
	switch s.state.State {
	case player.StatePlaying:
		return lipgloss.Color("#00FF00")
	case player.StatePaused:
		return lipgloss.Color("#FFFF00")
	case player.StateLoading:
		return lipgloss.Color("#00AAFF")
	case player.StateError:
		return lipgloss.Color("#FF0000")
	default:
		return lipgloss.Color("#888888")
	}
}

func (s *statusDisplay) stateIcon() string {
	switch s.state.State {
	case player.StatePlaying:
		return "▶"
	case player.StatePaused:
		return "⏸"
	case player.StateLoading:
		return "⟳"
	case player.StateError:
		return "✗"
	default:
		return "■"
	}
}

// Render draws the status bar at the given width.
func (s *statusDisplay) Render(width int) string {
	if width < 20 {
		return ""
	}

	stateStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	left := stateStyle.Render(s.stateIcon())
	if s.title != "" {
		left += " " + s.title
	}

	var parts []string
	if s.state.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%s / %s",
			formatDuration(s.state.Position), formatDuration(s.state.Duration)))
	}
	if s.state.Rate != 0 && s.state.Rate != 1.0 {
		parts = append(parts, fmt.Sprintf("%.2fx", s.state.Rate))
	}
	if s.musicName != "" {
		parts = append(parts, "♪ "+s.musicName)
	}
	if s.offset != 0 {
		parts = append(parts, fmt.Sprintf("sync %+dms", s.offset.Milliseconds()))
	}
	if s.returnHot {
		parts = append(parts, "[.] return to verse")
	}
	if s.state.Err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
		parts = append(parts, errStyle.Render(truncate.StringWithTail(s.state.Err.Error(), 40, "...")))
	}
	right := dimStyle.Render(strings.Join(parts, "  "))

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + left + strings.Repeat(" ", gap) + right
}

// ProgressBar draws a playback progress bar at the given width.
func (s *statusDisplay) ProgressBar(width int) string {
	if width < 10 || s.state.Duration <= 0 {
		return ""
	}

	progress := float64(s.state.Position) / float64(s.state.Duration)
	if progress > 1 {
		progress = 1
	}
	filledWidth := int(progress * float64(width))
	if filledWidth > width {
		filledWidth = width
	}

	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
