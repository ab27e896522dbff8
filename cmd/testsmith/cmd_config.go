package main

import (
	"fmt"
	"os"

	"testsmith/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd groups configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage testsmith configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the workspace",
	Long: `Creates .testsmith/config.yaml with documented defaults. Existing
config files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Prints the configuration after file, environment, and flag overrides
have been applied. The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath(resolveWorkspace())

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg := config.Default()
	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model = model
	}

	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", path)
	fmt.Printf("set your API key via the %s environment variable, or api_key in the file\n", cfg.KeyEnvVar())
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Print(string(data))
	return nil
}
