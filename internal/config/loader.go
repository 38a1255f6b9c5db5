package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Aidin1998/todokv/internal/kvstore"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TODO_STORE_DRIVER.
const EnvPrefix = "TODO"

// DefaultPaths are tried in order when Load is given no explicit path.
var DefaultPaths = []string{
	"./config.yaml",
	"./configs/config.yaml",
	"/etc/todo-api/config.yaml",
}

// Load reads configuration. Explicit paths must exist; when none are given
// the DefaultPaths that exist are merged. Environment variables override
// files, and the result is validated.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := loadConfigFiles(v, paths); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func loadConfigFiles(v *viper.Viper, paths []string) error {
	explicit := len(paths) > 0
	if !explicit {
		paths = DefaultPaths
	}

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if explicit {
				return fmt.Errorf("config file %s not found", path)
			}
			continue
		}

		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks field rules and the rules that span sections.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	var errs []error

	switch cfg.Store.Driver {
	case kvstore.DriverRedis:
		r := cfg.Store.Redis
		switch {
		case r.EnableCluster && len(r.ClusterAddrs) == 0:
			errs = append(errs, errors.New("store.redis.cluster_addrs required when cluster is enabled"))
		case r.EnableSentinel && (len(r.SentinelAddrs) == 0 || r.MasterName == ""):
			errs = append(errs, errors.New("store.redis.sentinel_addrs and master_name required when sentinel is enabled"))
		case !r.EnableCluster && !r.EnableSentinel && r.Addr == "":
			errs = append(errs, errors.New("store.redis.addr required"))
		}
	case kvstore.DriverSQL:
		if cfg.Store.SQL.DSN == "" {
			errs = append(errs, errors.New("store.sql.dsn required"))
		}
	case kvstore.DriverEtcd:
		if len(cfg.Store.Etcd.Endpoints) == 0 {
			errs = append(errs, errors.New("store.etcd.endpoints required"))
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q must start with /", cfg.Metrics.Path))
	}

	if cfg.Events.Enabled {
		if len(cfg.Events.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("events.kafka.brokers required when events are enabled"))
		}
		if cfg.Events.Kafka.Topic == "" {
			errs = append(errs, errors.New("events.kafka.topic required when events are enabled"))
		}
	}

	return errors.Join(errs...)
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.namespaces", d.Store.Namespaces)

	v.SetDefault("store.badger.path", d.Store.Badger.Path)
	v.SetDefault("store.badger.sync_writes", d.Store.Badger.SyncWrites)

	r := d.Store.Redis
	v.SetDefault("store.redis.addr", r.Addr)
	v.SetDefault("store.redis.password", r.Password)
	v.SetDefault("store.redis.db", r.DB)
	v.SetDefault("store.redis.pool_size", r.PoolSize)
	v.SetDefault("store.redis.min_idle_conns", r.MinIdleConns)
	v.SetDefault("store.redis.conn_max_lifetime", r.ConnMaxLifetime)
	v.SetDefault("store.redis.conn_max_idle_time", r.ConnMaxIdleTime)
	v.SetDefault("store.redis.pool_timeout", r.PoolTimeout)
	v.SetDefault("store.redis.max_retries", r.MaxRetries)
	v.SetDefault("store.redis.min_retry_backoff", r.MinRetryBackoff)
	v.SetDefault("store.redis.max_retry_backoff", r.MaxRetryBackoff)
	v.SetDefault("store.redis.dial_timeout", r.DialTimeout)
	v.SetDefault("store.redis.read_timeout", r.ReadTimeout)
	v.SetDefault("store.redis.write_timeout", r.WriteTimeout)
	v.SetDefault("store.redis.scan_count", r.ScanCount)
	v.SetDefault("store.redis.enable_cluster", r.EnableCluster)
	v.SetDefault("store.redis.cluster_addrs", r.ClusterAddrs)
	v.SetDefault("store.redis.enable_sentinel", r.EnableSentinel)
	v.SetDefault("store.redis.sentinel_addrs", r.SentinelAddrs)
	v.SetDefault("store.redis.sentinel_password", r.SentinelPassword)
	v.SetDefault("store.redis.master_name", r.MasterName)

	s := d.Store.SQL
	v.SetDefault("store.sql.dialect", s.Dialect)
	v.SetDefault("store.sql.dsn", s.DSN)
	v.SetDefault("store.sql.max_open_conns", s.MaxOpenConns)
	v.SetDefault("store.sql.max_idle_conns", s.MaxIdleConns)
	v.SetDefault("store.sql.conn_max_lifetime", s.ConnMaxLifetime)
	v.SetDefault("store.sql.auto_migrate", s.AutoMigrate)

	e := d.Store.Etcd
	v.SetDefault("store.etcd.endpoints", e.Endpoints)
	v.SetDefault("store.etcd.username", e.Username)
	v.SetDefault("store.etcd.password", e.Password)
	v.SetDefault("store.etcd.dial_timeout", e.DialTimeout)
	v.SetDefault("store.etcd.request_timeout", e.RequestTimeout)

	k := d.Events.Kafka
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.kafka.brokers", k.Brokers)
	v.SetDefault("events.kafka.topic", k.Topic)
	v.SetDefault("events.kafka.write_timeout", k.WriteTimeout)
	v.SetDefault("events.kafka.batch_timeout", k.BatchTimeout)
	v.SetDefault("events.kafka.required_acks", k.RequiredAcks)
	v.SetDefault("events.kafka.max_attempts", k.MaxAttempts)
	v.SetDefault("events.kafka.compression", k.Compression)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("telemetry.tracing", d.Telemetry.Tracing)
	v.SetDefault("telemetry.metrics", d.Telemetry.Metrics)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
}
