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
	batchConcurrency  int
	batchOut          string
	batchNoCache      bool
	batchPlain        bool
	batchInstructions string
)

// batchCmd runs suggestions for several files at once
var batchCmd = &cobra.Command{
	Use:   "batch [file...]",
	Short: "Suggest tests for several source files",
	Long: `Processes each file like "suggest" does, with a bounded number of
requests in flight. A failing file does not stop the rest of the batch.

Example:
  testsmith batch --concurrency 3 src/*.py`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "Maximum requests in flight")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "Directory to write extracted test files into")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "Bypass the suggestion cache")
	batchCmd.Flags().BoolVar(&batchPlain, "plain", false, "Plain output without markdown styling")
	batchCmd.Flags().StringVar(&batchInstructions, "instructions", "", "Extra guidance appended to every prompt")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	runner, store, err := buildRunner()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	if batchOut != "" {
		if err := os.MkdirAll(batchOut, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Info("Starting batch",
		zap.Int("files", len(args)),
		zap.Int("concurrency", batchConcurrency))

	results, err := runner.RunBatch(ctx, args, batchConcurrency, suggest.Options{
		NoCache:      batchNoCache,
		Instructions: batchInstructions,
	})
	if err != nil {
		return err
	}

	r, err := render.New(batchPlain || !stdoutIsTerminal())
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", res.Path, res.Err)
			continue
		}

		out, err := r.Suggestion(res.Suggestion)
		if err != nil {
			return err
		}
		fmt.Print(out)
		fmt.Println()

		if batchOut != "" {
			dest, err := writeSuggestion(res.Suggestion, batchOut)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", dest)
		}
	}

	fmt.Printf("\n%d of %d files done\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
