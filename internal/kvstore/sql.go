package kvstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// kvEntry is one row of the kv_entries table.
type kvEntry struct {
	Namespace string `gorm:"primaryKey;size:128"`
	Key       string `gorm:"column:entry_key;primaryKey;size:512"`
	Value     string `gorm:"not null"`
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLBackend stores entries in a relational database through gorm.
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend opens the database described by cfg and migrates the
// kv_entries table when cfg.AutoMigrate is set.
func NewSQLBackend(cfg SQLConfig, logger *zap.Logger) (*SQLBackend, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: sql dialect %q", ErrUnsupportedDriver, cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Dialect, err)
	}
	return newSQLBackend(db, cfg, logger)
}

// NewSQLBackendFromDB wraps an already opened gorm handle.
func NewSQLBackendFromDB(db *gorm.DB, autoMigrate bool) (*SQLBackend, error) {
	return newSQLBackend(db, SQLConfig{AutoMigrate: autoMigrate}, zap.NewNop())
}

func newSQLBackend(db *gorm.DB, cfg SQLConfig, logger *zap.Logger) (*SQLBackend, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		// a second connection to ":memory:" would be a different database
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&kvEntry{}); err != nil {
			return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
		}
		logger.Info("kv_entries table migrated", zap.String("dialect", db.Dialector.Name()))
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Store(namespace string) Store {
	return &sqlStore{db: b.db, namespace: namespace}
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *SQLBackend) Driver() string { return DriverSQL }

type sqlStore struct {
	db        *gorm.DB
	namespace string
}

func (s *sqlStore) ListKeys(ctx context.Context) ([]string, error) {
	keys := []string{}
	err := s.db.WithContext(ctx).
		Model(&kvEntry{}).
		Where("namespace = ?", s.namespace).
		Pluck("entry_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing kv_entries: %w", err)
	}
	return keys, nil
}

func (s *sqlStore) Put(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	entry := kvEntry{Namespace: s.namespace, Key: key, Value: value}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&entry).Error
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Delete(&kvEntry{}).Error
}
