// Package prompt builds the completion prompts testsmith sends to a
// provider. It is deliberately a single builder, not a templating layer:
// language and framework come from a file-extension table, never from
// parsing the source.
package prompt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Version participates in cache keys so a prompt change invalidates
// previously cached suggestions.
const Version = "v2"

// SystemPrompt is the instruction sent as the system message on every run.
const SystemPrompt = `You are an experienced software engineer who writes thorough, idiomatic unit tests.
Given a source file, suggest a complete unit test file for it.

Rules:
- Use the conventional test framework for the source language.
- Cover the happy path, boundary values, and every documented error condition.
- Keep test names descriptive of the behavior under test.
- Respond with a short summary, then exactly one fenced code block containing the full test file.`

// Request carries everything the builder needs for one prompt.
type Request struct {
	Path         string // source file path (used for language detection and display)
	Source       string // full source text
	Language     string // resolved language; filled from Path when empty
	Framework    string // resolved test framework; filled from Language when empty
	Instructions string // optional extra guidance from the user
}

// langByExt maps file extensions to display languages.
var langByExt = map[string]string{
	".py":    "Python",
	".java":  "Java",
	".js":    "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".go":    "Go",
	".rb":    "Ruby",
	".rs":    "Rust",
	".c":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".cs":    "C#",
	".kt":    "Kotlin",
	".swift": "Swift",
	".php":   "PHP",
}

// frameworkByLang maps languages to their conventional test framework.
var frameworkByLang = map[string]string{
	"Python":     "pytest",
	"Java":       "JUnit 5",
	"JavaScript": "Jest",
	"TypeScript": "Jest",
	"Go":         "the standard testing package",
	"Ruby":       "RSpec",
	"Rust":       "the built-in #[test] framework",
	"C":          "Unity",
	"C++":        "GoogleTest",
	"C#":         "xUnit",
	"Kotlin":     "JUnit 5",
	"Swift":      "XCTest",
	"PHP":        "PHPUnit",
}

// DetectLanguage resolves a display language from the file extension.
// Unknown extensions return an empty string.
func DetectLanguage(path string) string {
	return langByExt[strings.ToLower(filepath.Ext(path))]
}

// FrameworkFor returns the conventional test framework for a language, or a
// neutral phrasing when the language is unknown.
func FrameworkFor(language string) string {
	if fw, ok := frameworkByLang[language]; ok {
		return fw
	}
	return "the language's standard test framework"
}

// FenceTag returns the markdown fence tag for a language.
func FenceTag(language string) string {
	switch language {
	case "":
		return ""
	case "C#":
		return "csharp"
	case "C++":
		return "cpp"
	default:
		return strings.ToLower(strings.ReplaceAll(language, " ", ""))
	}
}

// Build constructs the user prompt for a suggestion request. Output is
// deterministic for a given request.
func Build(req Request) string {
	language := req.Language
	if language == "" {
		language = DetectLanguage(req.Path)
	}
	framework := req.Framework
	if framework == "" {
		framework = FrameworkFor(language)
	}

	var b strings.Builder

	b.WriteString("# Task: Suggest Unit Tests\n\n")

	fmt.Fprintf(&b, "## Source File\n\n`%s`", filepath.Base(req.Path))
	if language != "" {
		fmt.Fprintf(&b, " (%s)", language)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Target Framework\n\n%s\n\n", framework)

	b.WriteString("## Source\n\n")
	fmt.Fprintf(&b, "```%s\n", FenceTag(language))
	b.WriteString(req.Source)
	if !strings.HasSuffix(req.Source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")

	if req.Instructions != "" {
		b.WriteString("## Additional Instructions\n\n")
		b.WriteString(req.Instructions)
		b.WriteString("\n\n")
	}

	b.WriteString("## Instructions\n\n")
	fmt.Fprintf(&b, "Write a complete unit test file for this source using %s:\n", framework)
	b.WriteString("1. Cover the happy path for every public function or method.\n")
	b.WriteString("2. Cover boundary values and documented error conditions.\n")
	b.WriteString("3. Keep the file self-contained and runnable as-is.\n\n")
	b.WriteString("Respond with a brief summary followed by exactly one fenced code block containing the full test file.\n")

	return b.String()
}
