package pathcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEntry() Entry {
	return Entry{Owner: "octo", Repo: "widget", Filename: "llms.txt", Path: "docs/llms.txt", Branch: "master"}
}

// storeContract runs the behavior every Store implementation must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("miss on empty store", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Get(ctx, "octo", "widget", "llms.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, sampleEntry()))

		got, ok, err := s.Get(ctx, "octo", "widget", "llms.txt")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, sampleEntry(), got)
	})

	t.Run("last writer wins", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, sampleEntry()))

		newer := sampleEntry()
		newer.Path = "llms.txt"
		newer.Branch = "main"
		require.NoError(t, s.Set(ctx, newer))

		got, ok, err := s.Get(ctx, "octo", "widget", "llms.txt")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, newer, got)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, sampleEntry()))

		_, ok, err := s.Get(ctx, "octo", "gadget", "llms.txt")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = s.Get(ctx, "octo", "widget", "README.md")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		s := newStore(t)
		bad := sampleEntry()
		bad.Branch = ""
		assert.ErrorIs(t, s.Set(ctx, bad), ErrInvalidEntry)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreConcurrentWriters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := sampleEntry()
			e.Repo = fmt.Sprintf("widget-%d", i%5)
			_ = s.Set(ctx, e)
			_, _, _ = s.Get(ctx, e.Owner, e.Repo, e.Filename)
		}(i)
	}
	wg.Wait()

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Len(t, s.entries, 5)
}

func TestKeyIsSafeAndUnambiguous(t *testing.T) {
	k := Key("a.b", "c/d", "llms.txt")
	assert.Equal(t, 2, strings.Count(k, "."), "only separators may be dots")
	assert.NotContains(t, k, "/")
	assert.NotEqual(t, Key("a", "b.c", "f"), Key("a.b", "c", "f"))
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "paths.json"), testLogger())
		require.NoError(t, err)
		return s
	})
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "paths.json")
	ctx := context.Background()

	s, err := NewFileStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, sampleEntry()))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	reopened, err := NewFileStore(path, testLogger())
	require.NoError(t, err)

	got, ok, err := reopened.Get(ctx, "octo", "widget", "llms.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleEntry(), got)
}

func TestFileStoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paths.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewFileStore(path, testLogger())
	require.NoError(t, err)

	_, ok, err := s.Get(context.Background(), "octo", "widget", "llms.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(context.Background(), sampleEntry()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0"`)
}

func TestFileStoreIgnoresVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paths.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"0.1","entries":{}}`), 0644))

	s, err := NewFileStore(path, testLogger())
	require.NoError(t, err)
	assert.Empty(t, s.entries)
}

func TestNewFileStoreEmptyPath(t *testing.T) {
	_, err := NewFileStore("", testLogger())
	assert.Error(t, err)
}
