// Package extract pulls the suggested test code out of a model completion.
// It only scans for markdown fences; the code inside is never parsed.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Result holds the extracted code block from a completion.
type Result struct {
	Code     string // body of the first fenced block (or the whole completion on fallback)
	FenceTag string // language tag on the fence, may be empty
}

// Extract returns the first fenced code block in the completion. When no
// fence is present the whole completion is returned verbatim and found is
// false, so callers can still write something useful to --out.
func Extract(completion string) (Result, bool) {
	lines := strings.Split(completion, "\n")

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}

		tag := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))

		var body []string
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "```" {
				return Result{
					Code:     strings.Join(body, "\n") + "\n",
					FenceTag: tag,
				}, true
			}
			body = append(body, lines[j])
		}

		// Unterminated fence: treat the rest of the completion as the block
		return Result{
			Code:     strings.Join(body, "\n") + "\n",
			FenceTag: tag,
		}, true
	}

	return Result{Code: completion}, false
}

// TestFileName proposes a conventional test-file name for a source path.
func TestFileName(srcPath, language string) string {
	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	switch language {
	case "Python":
		return "test_" + strings.ToLower(stem) + ".py"
	case "Java", "Kotlin":
		return stem + "Test" + ext
	case "JavaScript":
		return stem + ".test.js"
	case "TypeScript":
		return stem + ".test.ts"
	case "Go":
		return stem + "_test.go"
	case "Ruby":
		return stem + "_spec.rb"
	case "C#":
		return stem + "Tests.cs"
	default:
		if ext == "" {
			return stem + "_test"
		}
		return fmt.Sprintf("%s_test%s", stem, ext)
	}
}
