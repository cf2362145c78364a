package core

import (
	"context"
	"fmt"

	"glucotrack/internal/config"
	"glucotrack/internal/kv"
	"glucotrack/internal/observability"
)

// OpenStore opens the backend selected by cfg. When the persistent medium
// cannot be opened and cfg allows it, the in-memory backend is used for the
// rest of the process and a warning is logged.
func OpenStore(ctx context.Context, cfg config.Storage, logger Logger) (kv.Backend, error) {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	backend, err := kv.Open(ctx, cfg)
	if err == nil {
		logger.Info("store opened", "driver", string(backend.Driver()))
		return backend, nil
	}
	if !cfg.Fallback() || cfg.Driver == config.DriverMemory {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	logger.Warn("persistent store unavailable; using in-memory store", "driver", cfg.Driver, "error", err)
	return kv.NewMemory(), nil
}
