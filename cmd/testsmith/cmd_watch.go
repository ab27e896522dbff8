package main

import (
	"fmt"
	"os"

	"testsmith/internal/render"
	"testsmith/internal/suggest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchExts         []string
	watchOut          string
	watchNoCache      bool
	watchInstructions string
)

// watchCmd re-runs suggestions when watched source files change
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and suggest tests on every save",
	Long: `Watches the directory tree and runs a suggestion whenever a matching
source file is created or written. Rapid saves of the same file are
collapsed into a single run.

Press Ctrl-C to stop.

Example:
  testsmith watch --ext py,java src/`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchExts, "ext", nil, "Extensions to react to (default: any known language)")
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "Directory to write extracted test files into")
	watchCmd.Flags().BoolVar(&watchNoCache, "no-cache", false, "Bypass the suggestion cache")
	watchCmd.Flags().StringVar(&watchInstructions, "instructions", "", "Extra guidance appended to every prompt")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	runner, store, err := buildRunner()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	if watchOut != "" {
		if err := os.MkdirAll(watchOut, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	watcher, err := suggest.NewWatcher(runner, args[0], watchExts, suggest.Options{
		NoCache:      watchNoCache,
		Instructions: watchInstructions,
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	go watcher.Start(ctx)

	logger.Info("Watching for changes", zap.String("dir", args[0]))
	fmt.Printf("watching %s (Ctrl-C to stop)\n", args[0])

	// Watch mode always renders plain: interleaved styled output is
	// unreadable once two results arrive close together.
	r, err := render.New(true)
	if err != nil {
		return err
	}

	for res := range watcher.Results() {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", res.Path, res.Err)
			continue
		}

		out, err := r.Suggestion(res.Suggestion)
		if err != nil {
			return err
		}
		fmt.Print(out)
		fmt.Println()

		if watchOut != "" {
			dest, err := writeSuggestion(res.Suggestion, watchOut)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Printf("wrote %s\n", dest)
		}
	}

	return nil
}
