package pathcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// fileVersion is the current cache file format version
	fileVersion = "1.0"
	// cacheDirPermissions is the permissions for the cache directory
	cacheDirPermissions = 0755
	// cacheFilePermissions is the permissions for cache files
	cacheFilePermissions = 0644
)

// cachedPaths is the on-disk layout of a FileStore.
type cachedPaths struct {
	Version   string           `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Entries   map[string]Entry `json:"entries"`
}

// FileStore persists entries to a single JSON file. Every Set rewrites the file
// atomically; reads are served from memory.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
	logger  *slog.Logger
}

// NewFileStore opens (or creates) the cache file at path. A corrupt or
// version-mismatched file is ignored and replaced on the next write.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), cacheDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to ensure cache directory: %w", err)
	}

	s := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
		logger:  logger,
	}

	loaded, err := s.load()
	switch {
	case err == nil:
		s.entries = loaded
	case os.IsNotExist(err):
	default:
		logger.Warn("Ignoring unreadable path cache", "path", path, "error", err)
	}

	return s, nil
}

// Get returns the entry for the triple, if any.
func (s *FileStore) Get(_ context.Context, owner, repo, filename string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[Key(owner, repo, filename)]
	return e, ok, nil
}

// Set stores entry and flushes the whole map to disk.
func (s *FileStore) Set(_ context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.key()] = entry
	if err := s.save(); err != nil {
		return err
	}

	s.logger.Debug("Path cache saved", "path", s.path, "entries", len(s.entries))
	return nil
}

// save writes the cache atomically using temp file + rename. Caller holds mu.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(&cachedPaths{
		Version:   fileVersion,
		UpdatedAt: time.Now(),
		Entries:   s.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tempPath := s.path + ".tmp"

	if err := os.WriteFile(tempPath, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	tempFile, err := os.Open(tempPath)
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to open temp cache file for sync: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp cache file: %w", err)
	}
	tempFile.Close()

	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var cached cachedPaths
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	if cached.Version != fileVersion {
		return nil, fmt.Errorf("cache version mismatch: got %s, expected %s", cached.Version, fileVersion)
	}
	if cached.Entries == nil {
		cached.Entries = make(map[string]Entry)
	}

	s.logger.Debug("Path cache loaded", "path", s.path, "entries", len(cached.Entries))
	return cached.Entries, nil
}
