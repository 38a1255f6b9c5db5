package kvstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// BadgerBackend is a disk-backed backend on BadgerDB.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens the database at cfg.Path, or an in-memory instance
// when the path is empty.
func NewBadgerBackend(cfg BadgerConfig) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts.Logger = nil // disable internal logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Store(namespace string) Store {
	return &badgerStore{db: b.db, prefix: []byte(namespacePrefix(namespace))}
}

func (b *BadgerBackend) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return ErrClosed
	}
	return ctx.Err()
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func (b *BadgerBackend) Driver() string { return DriverBadger }

type badgerStore struct {
	db     *badger.DB
	prefix []byte
}

func (s *badgerStore) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			keys = append(keys, string(k[len(s.prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing badger keys: %w", err)
	}
	return keys, nil
}

func (s *badgerStore) Put(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), []byte(value))
	})
}

func (s *badgerStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
}

func (s *badgerStore) key(key string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(key))
	k = append(k, s.prefix...)
	return append(k, key...)
}
