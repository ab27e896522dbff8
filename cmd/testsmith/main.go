package main

import (
	"fmt"
	"os"
	"time"

	"testsmith/internal/config"
	"testsmith/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via -ldflags.
var Version = "0.3.0-dev"

var (
	// Global flags
	verbose   bool
	workspace string
	provider  string
	model     string
	apiKey    string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "testsmith",
	Short: "testsmith - unit test suggestions from a completion API",
	Long: `testsmith reads a source file, asks a hosted completion model for a
matching unit test file, and shows the suggestion in the terminal.

The tool never parses or executes the source. It builds a prompt around the
raw file contents and relies on the model for the test design; the output is
a starting point for a human, not a finished test suite.

Run "testsmith suggest <file>" to get started.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := resolveWorkspace()
		if err := logging.Initialize(ws); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		logging.Boot("testsmith %s starting (command=%s)", Version, cmd.Name())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the testsmith version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("testsmith %s\n", Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Completion provider: openai, anthropic, gemini")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Model name (provider default when empty)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (or set the provider's env var)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (config default when zero)")

	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(fixturesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the --workspace flag or the current directory.
func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// loadConfig reads the workspace config and layers the global flags on top.
func loadConfig() (*config.Config, error) {
	ws := resolveWorkspace()
	cfg, err := config.Load(config.DefaultPath(ws))
	if err != nil {
		return nil, err
	}

	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model = model
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if timeout > 0 {
		cfg.Timeout = timeout.String()
	}
	if cfg.APIKey == "" {
		// Flags may have switched providers after Load filled the key.
		cfg.APIKey = os.Getenv(cfg.KeyEnvVar())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
