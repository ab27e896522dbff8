package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"testsmith/internal/prompt"

	"github.com/spf13/cobra"
)

// fixturesCmd lists the bundled sample inputs
var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "List the bundled example source files",
	Long: `Lists the sample source files shipped under examples/, with detected
language and test framework. They are handy first inputs:

  testsmith suggest examples/financial_calculator.py`,
	Args: cobra.NoArgs,
	RunE: runFixtures,
}

func runFixtures(cmd *cobra.Command, args []string) error {
	dir := filepath.Join(resolveWorkspace(), "examples")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no examples/ directory in %s", resolveWorkspace())
		}
		return fmt.Errorf("failed to read examples directory: %w", err)
	}

	type fixture struct {
		name string
		size int64
	}
	var fixtures []fixture
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if prompt.DetectLanguage(entry.Name()) == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fixtures = append(fixtures, fixture{name: entry.Name(), size: info.Size()})
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].name < fixtures[j].name })

	if len(fixtures) == 0 {
		fmt.Println("no example source files found")
		return nil
	}

	fmt.Printf("%-35s  %-12s  %-8s  %s\n", "FILE", "LANGUAGE", "SIZE", "FRAMEWORK")
	for _, f := range fixtures {
		lang := prompt.DetectLanguage(f.name)
		fmt.Printf("%-35s  %-12s  %-8d  %s\n", filepath.Join("examples", f.name), lang, f.size, prompt.FrameworkFor(lang))
	}

	return nil
}
