// Package main is the audiobible CLI: a synchronized scripture reader
// that plays chapter narration with optional background music.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/kinyabible/audiobible/content"
	"github.com/kinyabible/audiobible/internal/cache"
	"github.com/kinyabible/audiobible/player"
	"github.com/kinyabible/audiobible/player/bgloop"
	"github.com/kinyabible/audiobible/player/mix"
	"github.com/kinyabible/audiobible/player/transport"
	"github.com/kinyabible/audiobible/player/versesync"
	"github.com/kinyabible/audiobible/settings"
	"github.com/kinyabible/audiobible/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	baseURL    string
	autoplay   bool

	rootCmd = &cobra.Command{
		Use:   "audiobible [BOOK] [CHAPTER]",
		Short: "Read scripture with synchronized narration",
		Long: paragraph(fmt.Sprintf(
			"\nRead scripture in the terminal with %s narration, verse highlighting, and background music.",
			keyword("synchronized"))),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(2),
		RunE:          execute,
	}
)

func execute(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("audiobible needs an interactive terminal")
	}

	logger := log.Default()

	store, err := openSettings(logger)
	if err != nil {
		return err
	}
	saved := store.Current()

	catalog := content.NewCatalog()
	book, chapter, err := resolveTarget(catalog, args, saved)
	if err != nil {
		return err
	}

	return runReader(cmd.Context(), logger, store, catalog, book, chapter)
}

// resolveTarget picks the book and chapter from the arguments, falling
// back to the saved reading position.
func resolveTarget(catalog *content.Catalog, args []string, saved settings.Settings) (content.Book, int, error) {
	if len(args) == 0 {
		book, err := catalog.ByID(saved.LastBookID)
		if err != nil {
			book, _ = catalog.ByID(1)
		}
		chapter := saved.LastChapter
		if chapter > book.Chapters {
			chapter = 1
		}
		return book, chapter, nil
	}

	book, err := catalog.ByName(args[0])
	if err != nil {
		matches := catalog.Search(args[0])
		if len(matches) == 0 {
			return content.Book{}, 0, fmt.Errorf("no book matches %q", args[0])
		}
		book = matches[0]
	}

	chapter := 1
	if len(args) == 2 {
		chapter, err = strconv.Atoi(args[1])
		if err != nil || chapter < 1 || chapter > book.Chapters {
			return content.Book{}, 0, fmt.Errorf("%s has chapters 1-%d", book.Name, book.Chapters)
		}
	}
	return book, chapter, nil
}

func openSettings(logger *log.Logger) (*settings.Store, error) {
	if configFile != "" {
		return settings.NewStoreAt(configFile, logger)
	}
	return settings.NewStore(logger)
}

// runReader wires the playback engine together and runs the TUI.
func runReader(ctx context.Context, logger *log.Logger, store *settings.Store, catalog *content.Catalog, book content.Book, chapter int) error {
	cfg, err := player.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid player configuration: %w", err)
	}

	cacheStore, err := openCache(logger)
	if err != nil {
		logger.Warn("chapter cache unavailable", "error", err)
	} else {
		defer cacheStore.Close() //nolint:errcheck
	}

	client := content.NewClient(contentBaseURL(), cacheStore, catalog, logger)
	music := content.NewMusicCatalog(viper.GetStringSlice("music.urls"))

	engine := transport.Detect()
	if !engine.Available() {
		logger.Warn("no audio device detected, playback disabled")
	}

	bus := player.NewBus()
	session := transport.NewMediaSession()
	adapter := transport.NewAdapter(engine, bus, session, cfg)
	defer adapter.Close() //nolint:errcheck

	intent := player.NewIntentClock()
	coordinator := player.NewCoordinator(adapter, bus, intent, cfg)
	defer coordinator.Close()

	syncEngine := versesync.NewEngine(bus, cfg)
	defer syncEngine.Close()

	loop := bgloop.NewController(engine, cfg)
	defer loop.Close()

	mixer := mix.NewSupervisor(coordinator, loop, bus)
	defer mixer.Close()

	saved := store.Current()
	mixer.SetNarrationVolume(saved.NarrationVolume)
	mixer.SetBackgroundVolume(saved.BackgroundVolume)
	mixer.SetMasterVolume(saved.MasterVolume)
	mixer.SetSelection(music.Selection(saved.MusicID, saved.BackgroundVolume))
	coordinator.SetRate(saved.Rate)

	bridge := ui.NewBridge()
	model := ui.NewModel(ctx, ui.Deps{
		Client:      client,
		Catalog:     catalog,
		Music:       music,
		Coordinator: coordinator,
		Sync:        syncEngine,
		Mixer:       mixer,
		Settings:    store,
		Session:     session,
		Intent:      intent,
		Config:      cfg,
		Logger:      logger,
	}, bridge, book, chapter)
	defer model.Close()

	store.Watch()

	p := tea.NewProgram(model, tea.WithAltScreen())
	bridge.Attach(p.Send)

	if autoplay {
		coordinator.Play()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func openCache(logger *log.Logger) (*cache.Store, error) {
	scope := gap.NewScope(gap.User, "audiobible")
	dir, err := scope.CacheDir()
	if err != nil || dir == "" {
		return nil, fmt.Errorf("could not determine cache path: %w", err)
	}

	opts := cache.DefaultOptions()
	if size := viper.GetInt64("cache.max_size"); size > 0 {
		opts.Capacity = size * 1024 * 1024
	}
	store, err := cache.Open(filepath.Join(dir, "chapters"), opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("chapter cache open", "dir", dir)
	return store, nil
}

func contentBaseURL() string {
	if baseURL != "" {
		return baseURL
	}
	if u := viper.GetString("content.base_url"); u != "" {
		return u
	}
	return content.DefaultBaseURL
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "settings file (default is the platform config dir)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "content server base URL")
	rootCmd.Flags().BoolVarP(&autoplay, "play", "p", false, "start narration immediately")

	_ = viper.BindPFlag("content.base_url", rootCmd.Flags().Lookup("base-url"))

	viper.SetDefault("content.base_url", content.DefaultBaseURL)
	viper.SetDefault("cache.max_size", 64)

	rootCmd.AddCommand(booksCmd, configCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "audiobible")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "audiobible")}, dirs...)
	}
	if c := os.Getenv("AUDIOBIBLE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("audiobible")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("audiobible")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}
}
