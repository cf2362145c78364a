// Package core defines the key-value backend contract implemented by the
// infra/kv drivers and consumed by the kv adapter.
package core

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a concrete key-value backend implementation.
type Driver string

const (
	// DriverMemory keeps values in process memory (tests, fallback).
	DriverMemory Driver = "memory"
	// DriverFilesystem stores one file per key under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverSQLite stores values in an embedded SQLite file (default).
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores values in a PostgreSQL table.
	DriverPostgres Driver = "postgres"
	// DriverS3 stores one object per key in an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
)

// Drivers lists every supported driver.
func Drivers() []Driver {
	return []Driver{DriverMemory, DriverFilesystem, DriverSQLite, DriverPostgres, DriverS3}
}

// Info describes a stored value.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Backend is the raw byte-level storage medium behind the JSON adapter.
type Backend interface {
	// Read returns the bytes stored under key or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write stores value under key, replacing any previous value.
	Write(ctx context.Context, key string, value []byte) (Info, error)
	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns entries whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver returns the backend identifier.
	Driver() Driver
	// Close releases underlying resources.
	Close() error
}

// ErrNotFound is returned by Read when no value is stored under the key.
var ErrNotFound = errors.New("kv: key not found")
