package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nhle/sif-notify/internal/store"
)

// NewTestBlobStore creates an in-memory SQLiteBlobStore with all
// migrations applied. It automatically closes the store when the test
// completes.
func NewTestBlobStore(t *testing.T) *store.SQLiteBlobStore {
	t.Helper()

	s, err := store.NewSQLiteBlobStore(":memory:")
	if err != nil {
		t.Fatalf("creating test blob store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test blob store: %v", err)
		}
	})

	return s
}

// QuietLogger returns a logger that discards all output.
func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discard{})
	return log
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// CountingBlobStore wraps a BlobStore and counts Set calls, so tests
// can assert how many storage writes a mutation produced.
type CountingBlobStore struct {
	Inner store.BlobStore

	mu   sync.Mutex
	sets int
}

// Get delegates to the inner store.
func (c *CountingBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	return c.Inner.Get(ctx, key)
}

// Set delegates to the inner store and increments the write count.
func (c *CountingBlobStore) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Inner.Set(ctx, key, value)
}

// Remove delegates to the inner store.
func (c *CountingBlobStore) Remove(ctx context.Context, key string) error {
	return c.Inner.Remove(ctx, key)
}

// SetCalls returns how many times Set was called.
func (c *CountingBlobStore) SetCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
