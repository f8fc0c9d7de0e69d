// Package pathcache memoizes where a repository's documentation file was last
// found, so later resolutions can skip probing and code search.
package pathcache

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
)

// ErrInvalidEntry is returned by Set when an entry lacks a key part or a location.
var ErrInvalidEntry = errors.New("invalid path cache entry")

// Entry records the location and branch where a file was found.
type Entry struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Branch   string `json:"branch"`
}

// Store is a key/value memo keyed by (owner, repo, filename). Entries are never
// invalidated; the next successful write supersedes them.
type Store interface {
	Get(ctx context.Context, owner, repo, filename string) (Entry, bool, error)
	Set(ctx context.Context, entry Entry) error
}

// Key returns the storage key for an (owner, repo, filename) triple. Each part
// is base64url encoded so the key is safe for file names and NATS subjects.
func Key(owner, repo, filename string) string {
	enc := base64.RawURLEncoding
	return strings.Join([]string{
		enc.EncodeToString([]byte(owner)),
		enc.EncodeToString([]byte(repo)),
		enc.EncodeToString([]byte(filename)),
	}, ".")
}

func (e Entry) key() string {
	return Key(e.Owner, e.Repo, e.Filename)
}

func (e Entry) validate() error {
	if e.Owner == "" || e.Repo == "" || e.Filename == "" || e.Path == "" || e.Branch == "" {
		return ErrInvalidEntry
	}
	return nil
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the entry for the triple, if any.
func (s *MemoryStore) Get(_ context.Context, owner, repo, filename string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[Key(owner, repo, filename)]
	return e, ok, nil
}

// Set stores entry, overwriting any previous value.
func (s *MemoryStore) Set(_ context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.key()] = entry
	return nil
}

