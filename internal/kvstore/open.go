package kvstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Open creates the backend selected by cfg.Driver.
func Open(cfg Config, logger *zap.Logger) (Backend, error) {
	logger.Info("Opening key-value store", zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryBackend(), nil
	case DriverBadger:
		return NewBadgerBackend(cfg.Badger)
	case DriverRedis:
		return NewRedisBackend(cfg.Redis, logger)
	case DriverSQL:
		return NewSQLBackend(cfg.SQL, logger)
	case DriverEtcd:
		return NewEtcdBackend(cfg.Etcd, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}
