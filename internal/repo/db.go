// Package repo implements the storage backends for books, backed either by
// GORM over SQLite (pure Go driver) or by an in-process slice. This file
// contains database bootstrapping helpers and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-books-backend/internal/domain"
)

type openOptions struct {
	tracing bool
	gormCfg *gorm.Config
}

// Option tweaks OpenSQLite.
type Option func(*openOptions)

// WithTracing installs the GORM OpenTelemetry plugin so every query emits a span.
func WithTracing() Option {
	return func(o *openOptions) { o.tracing = true }
}

// WithGormConfig overrides the GORM configuration (e.g. a silent logger in tests).
func WithGormConfig(cfg *gorm.Config) Option {
	return func(o *openOptions) { o.gormCfg = cfg }
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	o := openOptions{gormCfg: &gorm.Config{}}
	for _, opt := range opts {
		opt(&o)
	}

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), o.gormCfg)
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if o.tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// AutoMigrate creates or updates the books and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Book{},
		&domain.Idempotency{},
	)
}
