package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show chapter cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, err := openCache(log.Default())
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		stats := store.Stats()
		fmt.Printf("chapters cached: %d\n", stats.ItemCount)
		fmt.Printf("size:            %s of %s\n",
			humanize.Bytes(uint64(stats.Size)), humanize.Bytes(uint64(stats.Capacity)))
		if stats.Hits+stats.Misses > 0 {
			fmt.Printf("hit rate:        %.0f%%\n", stats.HitRate*100)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached chapters",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, err := openCache(log.Default())
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
