package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle       key.Binding
	TapVerse     key.Binding
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	SeekBack     key.Binding
	SeekForward  key.Binding
	NextChapter  key.Binding
	PrevChapter  key.Binding
	SyncEarlier  key.Binding
	SyncLater    key.Binding
	SyncReset    key.Binding
	Music        key.Binding
	VolumeUp     key.Binding
	VolumeDown   key.Binding
	MusicVolUp   key.Binding
	MusicVolDown key.Binding
	RateUp       key.Binding
	RateDown     key.Binding
	Return       key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		TapVerse:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play from verse")),
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous verse")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next verse")),
		PageUp:       key.NewBinding(key.WithKeys("pgup", "u"), key.WithHelp("pgup", "page up")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown", "d"), key.WithHelp("pgdn", "page down")),
		SeekBack:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "seek -10s")),
		SeekForward:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "seek +10s")),
		NextChapter:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next chapter")),
		PrevChapter:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous chapter")),
		SyncEarlier:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "highlight earlier")),
		SyncLater:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "highlight later")),
		SyncReset:    key.NewBinding(key.WithKeys("\\"), key.WithHelp("\\", "reset sync offset")),
		Music:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "cycle music")),
		VolumeUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		MusicVolUp:   key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "music louder")),
		MusicVolDown: key.NewBinding(key.WithKeys("{"), key.WithHelp("{", "music quieter")),
		RateUp:       key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "faster")),
		RateDown:     key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "slower")),
		Return:       key.NewBinding(key.WithKeys("."), key.WithHelp(".", "return to verse")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
