package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog routes logging to the file named by AUDIOBIBLE_LOG. Without
// it, logs above warn go to stderr so the TUI stays clean.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	path := os.Getenv("AUDIOBIBLE_LOG")
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error setting up logging: %w", err)
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	if os.Getenv("AUDIOBIBLE_DEBUG") == "" {
		log.SetLevel(log.InfoLevel)
	}
	log.SetReportTimestamp(true)

	return f.Close, nil
}
