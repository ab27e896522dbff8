// Package render formats suggestions for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"testsmith/internal/cache"
	"testsmith/internal/suggest"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cacheStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))
)

// Renderer writes suggestions either as styled markdown or as plain text.
type Renderer struct {
	plain bool
	md    *glamour.TermRenderer
}

// New builds a renderer. plain skips all styling, for pipes and CI logs.
func New(plain bool) (*Renderer, error) {
	r := &Renderer{plain: plain}
	if plain {
		return r, nil
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	r.md = md
	return r, nil
}

// Suggestion formats one suggestion for display.
func (r *Renderer) Suggestion(sug *suggest.Suggestion) (string, error) {
	if r.plain {
		return r.plainSuggestion(sug), nil
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Suggested tests for %s", sug.Path)))
	b.WriteString("\n")

	meta := fmt.Sprintf("model %s", sug.Model)
	if sug.Language != "" {
		meta += fmt.Sprintf(" | %s / %s", sug.Language, sug.Framework)
	}
	meta += fmt.Sprintf(" | %s", formatDuration(sug.Duration))
	b.WriteString(metaStyle.Render(meta))
	if sug.FromCache {
		b.WriteString(" ")
		b.WriteString(cacheStyle.Render("(cached)"))
	}
	b.WriteString("\n\n")

	if !sug.CodeFound {
		b.WriteString(warnStyle.Render("No fenced code block in the response; showing it verbatim."))
		b.WriteString("\n\n")
	}

	// The raw completion is rendered whole: the model's summary prose is
	// part of the suggestion, not just the code block.
	rendered, err := r.md.Render(sug.Raw)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	b.WriteString(rendered)

	b.WriteString(metaStyle.Render(fmt.Sprintf("Suggested file name: %s", sug.TestFile)))
	b.WriteString("\n")

	return b.String(), nil
}

func (r *Renderer) plainSuggestion(sug *suggest.Suggestion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "== %s ==\n", sug.Path)
	fmt.Fprintf(&b, "model: %s", sug.Model)
	if sug.Language != "" {
		fmt.Fprintf(&b, "  language: %s  framework: %s", sug.Language, sug.Framework)
	}
	fmt.Fprintf(&b, "  took: %s", formatDuration(sug.Duration))
	if sug.FromCache {
		b.WriteString("  [cached]")
	}
	b.WriteString("\n\n")

	if !sug.CodeFound {
		b.WriteString("note: no fenced code block in the response\n\n")
	}

	b.WriteString(sug.Code)
	if !strings.HasSuffix(sug.Code, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nsuggested file name: %s\n", sug.TestFile)

	return b.String()
}

// History renders the run history as a plain table.
func History(runs []cache.Run) string {
	if len(runs) == 0 {
		return "no runs recorded yet\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s  %-10s  %-7s  %-9s  %s\n", "WHEN", "PROVIDER", "CACHED", "TOOK", "FILE")
	for _, run := range runs {
		cached := "-"
		if run.FromCache {
			cached = "yes"
		}
		fmt.Fprintf(&b, "%-20s  %-10s  %-7s  %-9s  %s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Provider,
			cached,
			formatDuration(run.Duration),
			run.Path,
		)
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
