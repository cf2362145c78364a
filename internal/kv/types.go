// Package kv re-exports the key-value backend contract and provides the JSON
// adapter the repositories persist through.
package kv

import "glucotrack/internal/kv/core"

type (
	// Driver identifies a backend driver.
	Driver = core.Driver
	// Info describes a stored value.
	Info = core.Info
	// Backend is the raw byte-level storage contract.
	Backend = core.Backend
)

const (
	// DriverMemory is the in-process driver.
	DriverMemory = core.DriverMemory
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverSQLite is the embedded SQLite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the PostgreSQL driver.
	DriverPostgres = core.DriverPostgres
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
)

// ErrNotFound is returned by Backend.Read when a key has never been written.
var ErrNotFound = core.ErrNotFound
