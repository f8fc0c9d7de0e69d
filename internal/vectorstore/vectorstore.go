// Package vectorstore provides namespaced semantic search over documentation
// text: Markdown-aware chunking, pluggable embeddings, and cosine ranking over
// an in-memory or SQLite backend.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyDocument is returned when there is nothing to index.
var ErrEmptyDocument = errors.New("document has no indexable content")

// ErrEmptyQuery is returned when a search query is blank.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// Namespace isolates one documentation source from another.
type Namespace struct {
	Owner string
	Repo  string
}

// String renders the namespace for logs.
func (n Namespace) String() string {
	return n.Owner + "/" + n.Repo
}

// SearchResult is a ranked chunk. Higher scores are better.
type SearchResult struct {
	Chunk  string
	Score  float64
	Source string
}

// Record is an embedded chunk as stored by a Backend.
type Record struct {
	ID        string
	Position  int
	Source    string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Backend persists records per namespace.
type Backend interface {
	// Replace atomically swaps every record in ns for records.
	Replace(ctx context.Context, ns Namespace, records []Record) error
	// Records returns the records of ns ordered by position.
	Records(ctx context.Context, ns Namespace) ([]Record, error)
	Close() error
}

// Store indexes documents and answers similarity queries.
type Store struct {
	backend  Backend
	embedder Embedder
	chunker  *Chunker
	minScore float64
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMinScore drops results scoring at or below min.
func WithMinScore(min float64) Option {
	return func(s *Store) {
		s.minScore = min
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *Chunker) Option {
	return func(s *Store) {
		if c != nil {
			s.chunker = c
		}
	}
}

// New creates a Store.
func New(backend Backend, embedder Embedder, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		embedder: embedder,
		chunker:  NewChunker(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Index chunks and embeds text, then replaces the namespace's previous
// contents with it. source labels where the text came from. It returns the
// number of chunks stored.
func (s *Store) Index(ctx context.Context, ns Namespace, text, source string) (int, error) {
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, ErrEmptyDocument
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	now := time.Now()
	records := make([]Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = Record{
			ID:        uuid.NewString(),
			Position:  i,
			Source:    source,
			Content:   chunk,
			Embedding: vectors[i],
			CreatedAt: now,
		}
	}

	if err := s.backend.Replace(ctx, ns, records); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	s.logger.Info("Indexed documentation", "namespace", ns.String(), "source", source, "chunks", len(records))
	return len(records), nil
}

// Search ranks the namespace's chunks against query and returns at most limit
// results (all when limit <= 0), best first. Ties keep document order.
func (s *Store) Search(ctx context.Context, ns Namespace, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	records, err := s.backend.Records(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors))
	}
	q := vectors[0]

	results := make([]SearchResult, 0, len(records))
	for _, r := range records {
		score := cosine(q, r.Embedding)
		if score <= s.minScore {
			continue
		}
		results = append(results, SearchResult{Chunk: r.Content, Score: score, Source: r.Source})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("Searched documentation", "namespace", ns.String(), "query", query, "results", len(results))
	return results, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// cosine returns the cosine similarity of a and b, 0 when either is zero or
// the dimensions differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
