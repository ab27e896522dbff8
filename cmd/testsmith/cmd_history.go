package main

import (
	"fmt"
	"path/filepath"
	"time"

	"testsmith/internal/cache"
	"testsmith/internal/render"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyPrune time.Duration
)

// historyCmd lists past suggestion runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent suggestion runs",
	Long: `Lists recent runs recorded in the local cache database, newest first.

Use --prune to also delete cached suggestions older than the given age:
  testsmith history --prune 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to show")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete cached suggestions older than this age")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return fmt.Errorf("caching is disabled in config; no history is recorded")
	}

	path := cfg.Cache.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(resolveWorkspace(), path)
	}

	store, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if historyPrune > 0 {
		n, err := store.Prune(historyPrune)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d cached suggestions older than %s\n\n", n, historyPrune)
	}

	runs, err := store.RecentRuns(historyLimit)
	if err != nil {
		return err
	}

	fmt.Print(render.History(runs))
	return nil
}
