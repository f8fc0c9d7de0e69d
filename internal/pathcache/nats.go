package pathcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// keyValue is the subset of jetstream.KeyValue the store uses.
type keyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// NATSStore keeps entries in a JetStream key/value bucket so several server
// replicas share one memo.
type NATSStore struct {
	conn   *nats.Conn
	kv     keyValue
	logger *slog.Logger
}

// NewNATSStore connects to url and opens (or creates) bucket.
func NewNATSStore(ctx context.Context, url, bucket string, logger *slog.Logger) (*NATSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NATS bucket name cannot be empty")
	}

	conn, err := nats.Connect(url, nats.Name("repo-docs-mcp-server"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(initCtx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(initCtx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Documentation path cache",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create KV bucket: %w", err)
		}
		logger.Info("Created KV bucket for path cache", "bucket", bucket)
	}

	logger.Info("NATS path cache initialized", "url", url, "bucket", bucket)

	return &NATSStore{conn: conn, kv: kv, logger: logger}, nil
}

func newNATSStoreWithKV(kv keyValue, logger *slog.Logger) *NATSStore {
	return &NATSStore{kv: kv, logger: logger}
}

// Get returns the entry for the triple, if any.
func (s *NATSStore) Get(ctx context.Context, owner, repo, filename string) (Entry, bool, error) {
	item, err := s.kv.Get(ctx, Key(owner, repo, filename))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(item.Value(), &e); err != nil {
		return Entry{}, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return e, true, nil
}

// Set stores entry, overwriting any previous value.
func (s *NATSStore) Set(ctx context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if _, err := s.kv.Put(ctx, entry.key(), data); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	s.logger.Debug("Path cache entry stored", "owner", entry.Owner, "repo", entry.Repo, "path", entry.Path, "branch", entry.Branch)
	return nil
}

// Close closes the NATS connection.
func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
