// Package suggest orchestrates a suggestion run: read the source file, build
// the prompt, call the completion client, extract the test code, and record
// the result.
package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"testsmith/internal/cache"
	"testsmith/internal/extract"
	"testsmith/internal/llm"
	"testsmith/internal/logging"
	"testsmith/internal/prompt"

	"github.com/google/uuid"
)

// MaxSourceSize caps how much source is sent to the completion API.
const MaxSourceSize = 512 * 1024

// Runner executes suggestion requests against a single provider client.
type Runner struct {
	Client   llm.Client
	Provider string
	Store    *cache.Store // nil disables caching and history
}

// Options tweak a single run.
type Options struct {
	NoCache      bool
	Instructions string
}

// Suggestion is the outcome of one run.
type Suggestion struct {
	ID        string
	Path      string
	Language  string
	Framework string
	Raw       string // full model completion
	Code      string // extracted test code
	CodeFound bool   // whether a fenced block was found
	TestFile  string // proposed test-file name
	FromCache bool
	Model     string
	Duration  time.Duration
}

// Run produces a test suggestion for one source file.
func (r *Runner) Run(ctx context.Context, path string, opts Options) (*Suggestion, error) {
	startTime := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a source file", path)
	}
	if info.Size() > MaxSourceSize {
		return nil, fmt.Errorf("%s is %d bytes, above the %d byte limit", path, info.Size(), MaxSourceSize)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	model := llm.ModelName(r.Client)
	language := prompt.DetectLanguage(path)
	framework := prompt.FrameworkFor(language)

	sug := &Suggestion{
		ID:        uuid.NewString(),
		Path:      path,
		Language:  language,
		Framework: framework,
		TestFile:  extract.TestFileName(path, language),
		Model:     model,
	}

	key := cacheKey(source, r.Provider, model, opts.Instructions)

	if r.Store != nil && !opts.NoCache {
		entry, ok, err := r.Store.Get(key)
		if err != nil {
			logging.SuggestError("cache lookup failed for %s: %v", path, err)
		} else if ok {
			sug.Raw = entry.Raw
			sug.Code = entry.Code
			sug.CodeFound = entry.Code != ""
			sug.FromCache = true
			sug.Duration = time.Since(startTime)
			r.recordRun(sug)
			logging.Suggest("cache hit for %s (key=%s)", path, key[:12])
			return sug, nil
		}
	}

	userPrompt := prompt.Build(prompt.Request{
		Path:         path,
		Source:       string(source),
		Language:     language,
		Framework:    framework,
		Instructions: opts.Instructions,
	})

	logging.Suggest("requesting suggestion for %s (model=%s, prompt_len=%d)", path, model, len(userPrompt))

	raw, err := r.Client.CompleteWithSystem(ctx, prompt.SystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed for %s: %w", path, err)
	}

	result, found := extract.Extract(raw)
	sug.Raw = raw
	sug.Code = result.Code
	sug.CodeFound = found
	sug.Duration = time.Since(startTime)

	if r.Store != nil {
		if err := r.Store.Put(&cache.Entry{
			Key:      key,
			Path:     path,
			Provider: r.Provider,
			Model:    model,
			Language: language,
			Raw:      sug.Raw,
			Code:     sug.Code,
		}); err != nil {
			logging.SuggestError("cache store failed for %s: %v", path, err)
		}
		r.recordRun(sug)
	}

	logging.Suggest("suggestion for %s completed in %v (fence_found=%t)", path, sug.Duration, found)
	return sug, nil
}

func (r *Runner) recordRun(sug *Suggestion) {
	if r.Store == nil {
		return
	}
	if err := r.Store.RecordRun(&cache.Run{
		ID:        sug.ID,
		Path:      sug.Path,
		Provider:  r.Provider,
		Model:     sug.Model,
		FromCache: sug.FromCache,
		Duration:  sug.Duration,
	}); err != nil {
		logging.SuggestError("history record failed for %s: %v", sug.Path, err)
	}
}

// cacheKey hashes everything that changes the completion: source bytes,
// provider, model, prompt version, and extra instructions.
func cacheKey(source []byte, provider, model, instructions string) string {
	h := sha256.New()
	h.Write(source)
	fmt.Fprintf(h, "|%s|%s|%s|%s", provider, model, prompt.Version, instructions)
	return hex.EncodeToString(h.Sum(nil))
}
