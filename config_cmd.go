package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
)

const defaultConfig = `# content server base URL
content:
  base_url: "https://content.kinyabible.com"

# chapter cache size in MB
cache:
  max_size: 64

# background music tracks; ids and names derive from the filenames
music:
  urls: []

# playback engine tuning
player:
  # delay before retrying a failed load
  load_retry_backoff: 120ms
  # progress event interval
  position_interval: 250ms
  # window in which engine state reports are ignored after a toggle
  toggle_debounce: 800ms
  # autoscroll suppression after a seek
  seek_suppress: 1500ms
  # autoscroll suppression after a manual scroll
  scroll_suppress: 1200ms
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the audiobible config file",
	Long:    paragraph(fmt.Sprintf("\n%s the audiobible config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("audiobible config\naudiobible config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("audiobible", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		scope := gap.NewScope(gap.User, "audiobible")
		dirs, err := scope.ConfigDirs()
		if err != nil || len(dirs) == 0 {
			return fmt.Errorf("could not find configuration directory: %w", err)
		}
		configFile = filepath.Join(dirs[0], "audiobible.yml")
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable to create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
