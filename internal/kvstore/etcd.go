package kvstore

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// EtcdBackend stores keys under "<namespace>/<key>" in etcd.
type EtcdBackend struct {
	client         *clientv3.Client
	requestTimeout time.Duration
}

// NewEtcdBackend connects to the configured endpoints.
func NewEtcdBackend(cfg EtcdConfig, logger *zap.Logger) (*EtcdBackend, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	logger.Info("etcd client created", zap.Strings("endpoints", cfg.Endpoints))
	return &EtcdBackend{client: client, requestTimeout: cfg.RequestTimeout}, nil
}

func (b *EtcdBackend) Store(namespace string) Store {
	return &etcdStore{backend: b, prefix: namespacePrefix(namespace)}
}

func (b *EtcdBackend) Ping(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	endpoints := b.client.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("etcd: no endpoints")
	}
	_, err := b.client.Status(ctx, endpoints[0])
	return err
}

func (b *EtcdBackend) Close() error {
	return b.client.Close()
}

func (b *EtcdBackend) Driver() string { return DriverEtcd }

func (b *EtcdBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.requestTimeout)
}

type etcdStore struct {
	backend *EtcdBackend
	prefix  string
}

func (s *etcdStore) ListKeys(ctx context.Context) ([]string, error) {
	ctx, cancel := s.backend.withTimeout(ctx)
	defer cancel()
	resp, err := s.backend.client.Get(ctx, s.prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("listing etcd keys: %w", err)
	}
	keys := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		keys = append(keys, string(kv.Key[len(s.prefix):]))
	}
	return keys, nil
}

func (s *etcdStore) Put(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctx, cancel := s.backend.withTimeout(ctx)
	defer cancel()
	_, err := s.backend.client.Put(ctx, s.prefix+key, value)
	return err
}

func (s *etcdStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctx, cancel := s.backend.withTimeout(ctx)
	defer cancel()
	_, err := s.backend.client.Delete(ctx, s.prefix+key)
	return err
}
