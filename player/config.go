package player

import (
	"fmt"
	"time"
)

// Config contains tuning for the playback engine: one load retry with a
// short backoff, and a toggle debounce wide enough to outlast late engine
// callbacks.
type Config struct {
	// Transport settings
	LoadRetryBackoff time.Duration `yaml:"load_retry_backoff" env:"AUDIOBIBLE_LOAD_RETRY_BACKOFF"`
	PositionInterval time.Duration `yaml:"position_interval" env:"AUDIOBIBLE_POSITION_INTERVAL"`

	// Coordinator settings
	ToggleDebounce time.Duration `yaml:"toggle_debounce" env:"AUDIOBIBLE_TOGGLE_DEBOUNCE"`

	// Autoscroll settings
	SeekSuppress    time.Duration `yaml:"seek_suppress" env:"AUDIOBIBLE_SEEK_SUPPRESS"`
	ScrollSuppress  time.Duration `yaml:"scroll_suppress" env:"AUDIOBIBLE_SCROLL_SUPPRESS"`
	SameVerseWindow time.Duration `yaml:"same_verse_window" env:"AUDIOBIBLE_SAME_VERSE_WINDOW"`
	CenterThrottle  time.Duration `yaml:"center_throttle" env:"AUDIOBIBLE_CENTER_THROTTLE"`
	ReturnGrace     time.Duration `yaml:"return_grace" env:"AUDIOBIBLE_RETURN_GRACE"`

	// Background loop settings
	VolumeDebounce time.Duration `yaml:"volume_debounce" env:"AUDIOBIBLE_VOLUME_DEBOUNCE"`

	// Sync settings
	SyncOffsetStep time.Duration `yaml:"sync_offset_step" env:"AUDIOBIBLE_SYNC_OFFSET_STEP"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		LoadRetryBackoff: 120 * time.Millisecond,
		PositionInterval: 250 * time.Millisecond,
		ToggleDebounce:   800 * time.Millisecond,
		SeekSuppress:     1500 * time.Millisecond,
		ScrollSuppress:   1200 * time.Millisecond,
		SameVerseWindow:  800 * time.Millisecond,
		CenterThrottle:   700 * time.Millisecond,
		ReturnGrace:      5 * time.Second,
		VolumeDebounce:   100 * time.Millisecond,
		SyncOffsetStep:   100 * time.Millisecond,
	}
}

// Validate checks configuration values.
func (c Config) Validate() error {
	if c.LoadRetryBackoff < 0 {
		return fmt.Errorf("load_retry_backoff must not be negative: %v", c.LoadRetryBackoff)
	}
	if c.PositionInterval <= 0 {
		return fmt.Errorf("position_interval must be positive: %v", c.PositionInterval)
	}
	if c.ToggleDebounce < 0 {
		return fmt.Errorf("toggle_debounce must not be negative: %v", c.ToggleDebounce)
	}
	if c.CenterThrottle <= 0 {
		return fmt.Errorf("center_throttle must be positive: %v", c.CenterThrottle)
	}
	if c.VolumeDebounce < 0 {
		return fmt.Errorf("volume_debounce must not be negative: %v", c.VolumeDebounce)
	}
	if c.SyncOffsetStep <= 0 {
		return fmt.Errorf("sync_offset_step must be positive: %v", c.SyncOffsetStep)
	}
	return nil
}
