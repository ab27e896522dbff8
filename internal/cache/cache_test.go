package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".testsmith", "deep", "cache.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()
}

func TestStore_PutAndGet(t *testing.T) {
	store := openTestStore(t)

	entry := &Entry{
		Key:      "abc123",
		Path:     "examples/financial_calculator.py",
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Language: "Python",
		Raw:      "Summary.\n```python\npass\n```",
		Code:     "pass\n",
	}
	require.NoError(t, store.Put(entry))

	got, ok, err := store.Get("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Path, got.Path)
	assert.Equal(t, entry.Raw, got.Raw)
	assert.Equal(t, entry.Code, got.Code)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_GetMiss(t *testing.T) {
	store := openTestStore(t)

	got, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_PutReplaces(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(&Entry{Key: "k", Path: "a.py", Provider: "openai", Model: "m", Raw: "old", Code: "old"}))
	require.NoError(t, store.Put(&Entry{Key: "k", Path: "a.py", Provider: "openai", Model: "m", Raw: "new", Code: "new"}))

	got, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Raw)
}

func TestStore_RunHistory(t *testing.T) {
	store := openTestStore(t)

	runs := []*Run{
		{ID: "run-1", Path: "a.py", Provider: "openai", Model: "m", Duration: 1200 * time.Millisecond, CreatedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "run-2", Path: "b.js", Provider: "openai", Model: "m", FromCache: true, Duration: 3 * time.Millisecond, CreatedAt: time.Now().Add(-1 * time.Hour)},
		{ID: "run-3", Path: "c.java", Provider: "anthropic", Model: "m", Duration: 900 * time.Millisecond, CreatedAt: time.Now()},
	}
	for _, r := range runs {
		require.NoError(t, store.RecordRun(r))
	}

	got, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first
	assert.Equal(t, "run-3", got[0].ID)
	assert.Equal(t, "run-1", got[2].ID)
	assert.True(t, got[1].FromCache)
	assert.Equal(t, 3*time.Millisecond, got[1].Duration)
}

func TestStore_RecentRunsLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordRun(&Run{
			ID: string(rune('a' + i)), Path: "x.py", Provider: "openai", Model: "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.RecentRuns(2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(&Entry{Key: "old", Path: "a.py", Provider: "p", Model: "m", Raw: "r", Code: "c",
		CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, store.Put(&Entry{Key: "fresh", Path: "b.py", Provider: "p", Model: "m", Raw: "r", Code: "c"}))

	n, err := store.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := store.Get("old")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get("fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(&Entry{Key: "k", Path: "a.py", Provider: "p", Model: "m", Raw: "r", Code: "c"}))
	require.NoError(t, store.Close())

	// Reopen: schema already at latest version, data intact.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
}
