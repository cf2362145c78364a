package kv

import (
	"context"
	"fmt"

	"glucotrack/internal/config"
	fsstore "glucotrack/internal/infra/kv/fs"
	memorystore "glucotrack/internal/infra/kv/memory"
	pgstore "glucotrack/internal/infra/kv/postgres"
	infraS3 "glucotrack/internal/infra/kv/s3"
	sqlitestore "glucotrack/internal/infra/kv/sqlite"
)

// Open selects a Backend for cfg.Driver (default sqlite).
func Open(ctx context.Context, cfg config.Storage) (Backend, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return fsstore.New(cfg.FS.Root)
	case DriverSQLite:
		return sqlitestore.New(ctx, cfg.SQLite.Path)
	case DriverPostgres:
		return pgstore.New(ctx, cfg.Postgres.DSN)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-process Backend suitable for tests and fallback.
func NewMemory() Backend { return memorystore.New() }

// S3Config re-exports the infra S3 configuration type.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed Backend.
func NewS3(ctx context.Context, cfg S3Config) (Backend, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
func NewMockS3ForTests() Backend { return infraS3.NewMockForTests() }
