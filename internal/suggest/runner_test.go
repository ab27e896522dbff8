package suggest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"testsmith/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go.opencensus.io starts this worker in package init; it is not a
		// goroutine leaked by the code under test.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// fakeClient counts calls and returns a canned completion.
type fakeClient struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) GetModel() string { return "fake-model" }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const cannedCompletion = "Tests for the calculator.\n\n```python\nimport pytest\n\ndef test_add():\n    assert True\n```\n"

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestRunner(t *testing.T, client *fakeClient) *Runner {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &Runner{Client: client, Provider: "openai", Store: store}
}

func TestRunner_Run(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "def add(a, b):\n    return a + b\n")

	sug, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, sug.ID)
	assert.Equal(t, "Python", sug.Language)
	assert.Equal(t, "pytest", sug.Framework)
	assert.Equal(t, "test_calc.py", sug.TestFile)
	assert.Equal(t, "fake-model", sug.Model)
	assert.True(t, sug.CodeFound)
	assert.Contains(t, sug.Code, "def test_add():")
	assert.False(t, sug.FromCache)
	assert.Equal(t, 1, client.callCount())
}

func TestRunner_CacheHitSkipsAPI(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "def add(a, b):\n    return a + b\n")

	first, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, 1, client.callCount(), "second run must not call the API")
	assert.NotEqual(t, first.ID, second.ID, "each run gets its own ID")
}

func TestRunner_NoCacheBypassesLookup(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "x = 1\n")

	_, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	sug, err := runner.Run(context.Background(), path, Options{NoCache: true})
	require.NoError(t, err)

	assert.False(t, sug.FromCache)
	assert.Equal(t, 2, client.callCount())
}

func TestRunner_ChangedSourceMissesCache(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := newTestRunner(t, client)
	dir := t.TempDir()
	path := writeSource(t, dir, "calc.py", "x = 1\n")

	_, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("x = 2\n"), 0644))

	sug, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.False(t, sug.FromCache)
	assert.Equal(t, 2, client.callCount())
}

func TestRunner_InstructionsChangeCacheKey(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "x = 1\n")

	_, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), path, Options{Instructions: "focus on edge cases"})
	require.NoError(t, err)

	assert.Equal(t, 2, client.callCount())
}

func TestRunner_RecordsHistory(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "x = 1\n")

	_, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	runs, err := runner.Store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].FromCache || runs[1].FromCache)
}

func TestRunner_MissingFile(t *testing.T) {
	runner := newTestRunner(t, &fakeClient{response: cannedCompletion})

	_, err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "nope.py"), Options{})
	assert.Error(t, err)
}

func TestRunner_DirectoryRejected(t *testing.T) {
	runner := newTestRunner(t, &fakeClient{response: cannedCompletion})

	_, err := runner.Run(context.Background(), t.TempDir(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestRunner_EmptyFileRejected(t *testing.T) {
	runner := newTestRunner(t, &fakeClient{response: cannedCompletion})
	path := writeSource(t, t.TempDir(), "empty.py", "")

	_, err := runner.Run(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestRunner_OversizeFileRejected(t *testing.T) {
	runner := newTestRunner(t, &fakeClient{response: cannedCompletion})
	big := strings.Repeat("# padding line\n", MaxSourceSize/14+1)
	path := writeSource(t, t.TempDir(), "big.py", big)

	_, err := runner.Run(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")
}

func TestRunner_ClientErrorPropagates(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("rate limit exceeded")}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "x = 1\n")

	_, err := runner.Run(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestRunner_NoFenceStillReturnsSuggestion(t *testing.T) {
	client := &fakeClient{response: "I cannot find any testable code here."}
	runner := newTestRunner(t, client)
	path := writeSource(t, t.TempDir(), "calc.py", "x = 1\n")

	sug, err := runner.Run(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.False(t, sug.CodeFound)
	assert.Equal(t, client.response, sug.Code)
}

func TestRunner_NilStoreDisablesCaching(t *testing.T) {
	client := &fakeClient{response: cannedCompletion}
	runner := &Runner{Client: client, Provider: "openai"}
	path := writeSource(t, t.TempDir(), "calc.py", "x = 1\n")

	for i := 0; i < 2; i++ {
		sug, err := runner.Run(context.Background(), path, Options{})
		require.NoError(t, err)
		assert.False(t, sug.FromCache)
	}
	assert.Equal(t, 2, client.callCount())
}
