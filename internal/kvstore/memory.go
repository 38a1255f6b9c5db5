package kvstore

import (
	"context"
	"strings"
	"sync"

	"github.com/tidwall/btree"
)

// MemoryBackend keeps every namespace in one ordered map. Listing returns keys
// in lexical order.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   btree.Map[string, string]
	closed bool
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Store(namespace string) Store {
	return &memoryStore{backend: b, prefix: namespacePrefix(namespace)}
}

func (b *MemoryBackend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.data = btree.Map[string, string]{}
	return nil
}

func (b *MemoryBackend) Driver() string { return DriverMemory }

type memoryStore struct {
	backend *MemoryBackend
	prefix  string
}

func (s *memoryStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	if s.backend.closed {
		return nil, ErrClosed
	}

	keys := []string{}
	s.backend.data.Ascend(s.prefix, func(k, _ string) bool {
		if !strings.HasPrefix(k, s.prefix) {
			return false
		}
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
		return true
	})
	return keys, nil
}

func (s *memoryStore) Put(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.closed {
		return ErrClosed
	}
	s.backend.data.Set(s.prefix+key, value)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.closed {
		return ErrClosed
	}
	s.backend.data.Delete(s.prefix + key)
	return nil
}
