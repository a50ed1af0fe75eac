package player

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfig resolves the engine configuration: defaults, then values from
// the viper config file, then environment overrides.
func LoadConfig() (Config, error) {
	cfg := loadConfigFromViper()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid player configuration: %w", err)
	}
	return cfg, nil
}

func loadConfigFromViper() Config {
	cfg := DefaultConfig()

	if viper.IsSet("player.load_retry_backoff") {
		cfg.LoadRetryBackoff = viper.GetDuration("player.load_retry_backoff")
	}
	if viper.IsSet("player.position_interval") {
		cfg.PositionInterval = viper.GetDuration("player.position_interval")
	}
	if viper.IsSet("player.toggle_debounce") {
		cfg.ToggleDebounce = viper.GetDuration("player.toggle_debounce")
	}
	if viper.IsSet("player.seek_suppress") {
		cfg.SeekSuppress = viper.GetDuration("player.seek_suppress")
	}
	if viper.IsSet("player.scroll_suppress") {
		cfg.ScrollSuppress = viper.GetDuration("player.scroll_suppress")
	}
	if viper.IsSet("player.same_verse_window") {
		cfg.SameVerseWindow = viper.GetDuration("player.same_verse_window")
	}
	if viper.IsSet("player.center_throttle") {
		cfg.CenterThrottle = viper.GetDuration("player.center_throttle")
	}
	if viper.IsSet("player.return_grace") {
		cfg.ReturnGrace = viper.GetDuration("player.return_grace")
	}
	if viper.IsSet("player.volume_debounce") {
		cfg.VolumeDebounce = viper.GetDuration("player.volume_debounce")
	}
	if viper.IsSet("player.sync_offset_step") {
		cfg.SyncOffsetStep = viper.GetDuration("player.sync_offset_step")
	}

	return cfg
}
