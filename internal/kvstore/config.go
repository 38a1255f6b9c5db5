package kvstore

import "time"

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverRedis  = "redis"
	DriverSQL    = "sql"
	DriverEtcd   = "etcd"
)

// Config selects and configures the backend.
type Config struct {
	Driver     string   `mapstructure:"driver" validate:"required,oneof=memory badger redis sql etcd"`
	Namespaces []string `mapstructure:"namespaces" validate:"min=1,dive,required,excludesall=/"`

	Badger BadgerConfig `mapstructure:"badger"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQL    SQLConfig    `mapstructure:"sql"`
	Etcd   EtcdConfig   `mapstructure:"etcd"`
}

// BadgerConfig configures the embedded badger backend. An empty Path runs
// badger in memory.
type BadgerConfig struct {
	Path       string `mapstructure:"path"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	// Connection settings
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Pool settings
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`

	// Operational settings
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`

	// Timeout settings
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// SCAN page size used when listing keys
	ScanCount int64 `mapstructure:"scan_count"`

	// Cluster settings
	EnableCluster bool     `mapstructure:"enable_cluster"`
	ClusterAddrs  []string `mapstructure:"cluster_addrs"`

	// Sentinel settings (for high availability)
	EnableSentinel   bool     `mapstructure:"enable_sentinel"`
	SentinelAddrs    []string `mapstructure:"sentinel_addrs"`
	SentinelPassword string   `mapstructure:"sentinel_password"`
	MasterName       string   `mapstructure:"master_name"`
}

// SQLConfig configures the gorm backend.
type SQLConfig struct {
	Dialect         string        `mapstructure:"dialect" validate:"omitempty,oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// EtcdConfig configures the etcd backend.
type EtcdConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DefaultConfig returns an in-memory store bound to the "todos" namespace.
func DefaultConfig() Config {
	return Config{
		Driver:     DriverMemory,
		Namespaces: []string{"todos"},
		Badger: BadgerConfig{
			Path: "data/badger",
		},
		Redis: DefaultRedisConfig(),
		SQL: SQLConfig{
			Dialect:         "sqlite",
			DSN:             "todos.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			AutoMigrate:     true,
		},
		Etcd: EtcdConfig{
			Endpoints:      []string{"localhost:2379"},
			DialTimeout:    5 * time.Second,
			RequestTimeout: 2 * time.Second,
		},
	}
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",

		PoolSize:        20,
		MinIdleConns:    2,
		ConnMaxLifetime: 24 * time.Hour,
		ConnMaxIdleTime: 5 * time.Minute,
		PoolTimeout:     4 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,

		ScanCount: 256,
	}
}
