package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"testsmith/internal/cache"
	"testsmith/internal/llm"
	"testsmith/internal/render"
	"testsmith/internal/suggest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	suggestOut          string
	suggestNoCache      bool
	suggestPlain        bool
	suggestInstructions string
)

// suggestCmd asks the configured model for a unit test suggestion
var suggestCmd = &cobra.Command{
	Use:   "suggest [file]",
	Short: "Suggest a unit test file for one source file",
	Long: `Reads the source file, sends it to the configured completion provider,
and prints the suggested test code.

Examples:
  testsmith suggest examples/financial_calculator.py
  testsmith suggest --provider anthropic --out tests/ src/calc.js
  testsmith suggest --instructions "focus on edge cases" Calc.java`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVarP(&suggestOut, "out", "o", "", "Write the extracted test code to this file or directory")
	suggestCmd.Flags().BoolVar(&suggestNoCache, "no-cache", false, "Bypass the suggestion cache")
	suggestCmd.Flags().BoolVar(&suggestPlain, "plain", false, "Plain output without markdown styling")
	suggestCmd.Flags().StringVar(&suggestInstructions, "instructions", "", "Extra guidance appended to the prompt")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	runner, store, err := buildRunner()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	logger.Info("Requesting suggestion",
		zap.String("file", args[0]),
		zap.String("provider", runner.Provider))

	sug, err := runner.Run(ctx, args[0], suggest.Options{
		NoCache:      suggestNoCache,
		Instructions: suggestInstructions,
	})
	if err != nil {
		return err
	}

	r, err := render.New(suggestPlain || !stdoutIsTerminal())
	if err != nil {
		return err
	}
	out, err := r.Suggestion(sug)
	if err != nil {
		return err
	}
	fmt.Print(out)

	if suggestOut != "" {
		dest, err := writeSuggestion(sug, suggestOut)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", dest)
	}

	return nil
}

// buildRunner assembles the client, cache store, and runner from config.
// The store is nil when caching is disabled.
func buildRunner() (*suggest.Runner, *cache.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if cfg.APIKey == "" && stdoutIsTerminal() {
		key, err := promptForAPIKey(cfg.Provider, cfg.KeyEnvVar())
		if err != nil {
			return nil, nil, err
		}
		cfg.APIKey = key
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	var store *cache.Store
	if cfg.Cache.Enabled {
		path := cfg.Cache.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(resolveWorkspace(), path)
		}
		store, err = cache.Open(path)
		if err != nil {
			// Degrade to uncached operation rather than failing the run.
			logger.Warn("Cache unavailable, continuing without it", zap.Error(err))
			store = nil
		}
	}

	return &suggest.Runner{
		Client:   client,
		Provider: cfg.Provider,
		Store:    store,
	}, store, nil
}

// writeSuggestion saves the extracted code. A directory target uses the
// conventional test-file name for the language.
func writeSuggestion(sug *suggest.Suggestion, target string) (string, error) {
	dest := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		dest = filepath.Join(target, sug.TestFile)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(sug.Code), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM and by the
// configured timeout when one is set.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if timeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, timeout)
		return tctx, func() {
			tcancel()
			stop()
		}
	}
	return ctx, stop
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
