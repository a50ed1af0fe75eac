// Package settings persists user preferences: volumes, narration rate,
// background music selection, and the last reading position. Values are
// stored in a YAML file under the platform config directory and reloaded
// when the file changes on disk.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/kinyabible/audiobible/content"
	"github.com/kinyabible/audiobible/player"
)

// Settings are the persisted user preferences.
type Settings struct {
	FontSize         int     `mapstructure:"font_size"`
	MusicID          string  `mapstructure:"music_id"`
	NarrationVolume  float64 `mapstructure:"narration_volume"`
	BackgroundVolume float64 `mapstructure:"background_volume"`
	MasterVolume     float64 `mapstructure:"master_volume"`
	Rate             float64 `mapstructure:"rate"`
	LastBookID       int     `mapstructure:"last_book_id"`
	LastChapter      int     `mapstructure:"last_chapter"`
}

// Default returns the settings used before any are saved.
func Default() Settings {
	return Settings{
		FontSize:         16,
		MusicID:          content.MusicNone,
		NarrationVolume:  1.0,
		BackgroundVolume: 0.3,
		MasterVolume:     1.0,
		Rate:             1.0,
		LastBookID:       1,
		LastChapter:      1,
	}
}

// clamp forces every field into its valid range.
func (s Settings) clamp() Settings {
	if s.FontSize < 10 {
		s.FontSize = 10
	}
	if s.FontSize > 32 {
		s.FontSize = 32
	}
	if s.MusicID == "" {
		s.MusicID = content.MusicNone
	}
	s.NarrationVolume = player.ClampVolume(s.NarrationVolume)
	s.BackgroundVolume = player.ClampVolume(s.BackgroundVolume)
	s.MasterVolume = player.ClampVolume(s.MasterVolume)
	s.Rate = player.ClampRate(s.Rate)
	if s.LastBookID < 1 || s.LastBookID > 66 {
		s.LastBookID = 1
	}
	if s.LastChapter < 1 {
		s.LastChapter = 1
	}
	return s
}

// Store reads and writes settings through viper, notifying listeners
// when the file changes out from under the process.
type Store struct {
	v      *viper.Viper
	path   string
	logger *log.Logger

	mu       sync.Mutex
	current  Settings
	onChange []func(Settings)
}

// NewStore opens the settings file for the app scope, creating it with
// defaults on first run.
func NewStore(logger *log.Logger) (*Store, error) {
	scope := gap.NewScope(gap.User, "audiobible")
	dirs, err := scope.ConfigDirs()
	if err != nil || len(dirs) == 0 {
		return nil, fmt.Errorf("could not determine config path: %w", err)
	}
	return NewStoreAt(filepath.Join(dirs[0], "settings.yaml"), logger)
}

// NewStoreAt opens the settings file at an explicit path.
func NewStoreAt(path string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	s := &Store{
		v:       v,
		path:    path,
		logger:  logger.With("component", "settings"),
		current: Default(),
	}

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := s.writeLocked(s.current); err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("could not read settings: %w", err)
		}
	} else {
		s.current = s.decodeLocked()
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns a snapshot of the settings.
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to the current settings, clamps the result, and
// persists it.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	next = next.clamp()
	if next == s.current {
		return nil
	}
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// OnChange registers a listener for settings reloaded from disk.
// Listeners do not fire for changes made through Update.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Watch starts reloading the settings file when it changes on disk.
func (s *Store) Watch() {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.mu.Lock()
		next := s.decodeLocked()
		changed := next != s.current
		s.current = next
		listeners := make([]func(Settings), len(s.onChange))
		copy(listeners, s.onChange)
		s.mu.Unlock()

		if !changed {
			return
		}
		s.logger.Debug("settings reloaded", "file", e.Name)
		for _, fn := range listeners {
			fn(next)
		}
	})
	s.v.WatchConfig()
}

func (s *Store) decodeLocked() Settings {
	cfg := Default()
	if err := s.v.Unmarshal(&cfg); err != nil {
		s.logger.Warn("could not decode settings, using defaults", "error", err)
		return Default()
	}
	return cfg.clamp()
}

func (s *Store) writeLocked(cfg Settings) error {
	s.v.Set("font_size", cfg.FontSize)
	s.v.Set("music_id", cfg.MusicID)
	s.v.Set("narration_volume", cfg.NarrationVolume)
	s.v.Set("background_volume", cfg.BackgroundVolume)
	s.v.Set("master_volume", cfg.MasterVolume)
	s.v.Set("rate", cfg.Rate)
	s.v.Set("last_book_id", cfg.LastBookID)
	s.v.Set("last_chapter", cfg.LastChapter)

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("could not write settings: %w", err)
	}
	return nil
}
