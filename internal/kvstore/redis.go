package kvstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBackend stores each key as a plain string under "<namespace>/<key>".
type RedisBackend struct {
	rdb       redis.UniversalClient
	config    RedisConfig
	scanCount int64
}

// NewRedisBackend creates a single, cluster or sentinel client depending on
// config and checks connectivity.
func NewRedisBackend(config RedisConfig, logger *zap.Logger) (*RedisBackend, error) {
	var rdb redis.UniversalClient

	if config.EnableCluster {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    config.ClusterAddrs,
			Password: config.Password,

			PoolSize:        config.PoolSize,
			MinIdleConns:    config.MinIdleConns,
			ConnMaxLifetime: config.ConnMaxLifetime,
			ConnMaxIdleTime: config.ConnMaxIdleTime,
			PoolTimeout:     config.PoolTimeout,

			MaxRetries:      config.MaxRetries,
			MinRetryBackoff: config.MinRetryBackoff,
			MaxRetryBackoff: config.MaxRetryBackoff,

			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		})
	} else if config.EnableSentinel {
		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       config.MasterName,
			SentinelAddrs:    config.SentinelAddrs,
			SentinelPassword: config.SentinelPassword,
			Password:         config.Password,
			DB:               config.DB,

			PoolSize:        config.PoolSize,
			MinIdleConns:    config.MinIdleConns,
			ConnMaxLifetime: config.ConnMaxLifetime,
			ConnMaxIdleTime: config.ConnMaxIdleTime,
			PoolTimeout:     config.PoolTimeout,

			MaxRetries:      config.MaxRetries,
			MinRetryBackoff: config.MinRetryBackoff,
			MaxRetryBackoff: config.MaxRetryBackoff,

			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,

			PoolSize:        config.PoolSize,
			MinIdleConns:    config.MinIdleConns,
			ConnMaxLifetime: config.ConnMaxLifetime,
			ConnMaxIdleTime: config.ConnMaxIdleTime,
			PoolTimeout:     config.PoolTimeout,

			MaxRetries:      config.MaxRetries,
			MinRetryBackoff: config.MinRetryBackoff,
			MaxRetryBackoff: config.MaxRetryBackoff,

			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client connected",
		zap.String("addr", config.Addr),
		zap.Int("db", config.DB),
		zap.Int("pool_size", config.PoolSize),
		zap.Bool("cluster_mode", config.EnableCluster),
		zap.Bool("sentinel_mode", config.EnableSentinel),
	)

	scanCount := config.ScanCount
	if scanCount <= 0 {
		scanCount = 256
	}
	return &RedisBackend{rdb: rdb, config: config, scanCount: scanCount}, nil
}

func (b *RedisBackend) Store(namespace string) Store {
	return &redisStore{backend: b, prefix: namespacePrefix(namespace)}
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	if b.rdb != nil {
		return b.rdb.Close()
	}
	return nil
}

func (b *RedisBackend) Driver() string { return DriverRedis }

// GetStats returns Redis connection pool statistics
func (b *RedisBackend) GetStats() *redis.PoolStats {
	return b.rdb.PoolStats()
}

type redisStore struct {
	backend *RedisBackend
	prefix  string
}

func (s *redisStore) ListKeys(ctx context.Context) ([]string, error) {
	match := escapeGlob(s.prefix) + "*"

	// SCAN on a cluster client only walks one node, so visit every master.
	if cc, ok := s.backend.rdb.(*redis.ClusterClient); ok {
		var (
			mu   sync.Mutex
			keys []string
		)
		err := cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			found, err := scanAll(ctx, node, match, s.backend.scanCount)
			if err != nil {
				return err
			}
			mu.Lock()
			keys = append(keys, found...)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning redis cluster: %w", err)
		}
		return stripPrefix(s.prefix, keys), nil
	}

	keys, err := scanAll(ctx, s.backend.rdb, match, s.backend.scanCount)
	if err != nil {
		return nil, fmt.Errorf("scanning redis: %w", err)
	}
	return stripPrefix(s.prefix, keys), nil
}

func (s *redisStore) Put(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.backend.rdb.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.backend.rdb.Del(ctx, s.prefix+key).Err()
}

func scanAll(ctx context.Context, c redis.Cmdable, match string, count int64) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	// SCAN may return a key more than once
	seen := make(map[string]struct{})
	for {
		page, next, err := c.Scan(ctx, cursor, match, count).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range page {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
