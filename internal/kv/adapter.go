package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"glucotrack/internal/observability"
)

// emptyCollection is the initial value of every collection key.
var emptyCollection = []byte("[]")

// Adapter stores JSON documents in a Backend. Read problems degrade to
// "absent" and are logged; write problems are logged and returned.
type Adapter struct {
	backend Backend
	logger  observability.Logger
}

// AdapterOption customises an Adapter.
type AdapterOption func(*Adapter)

// WithLogger routes adapter diagnostics to logger.
func WithLogger(logger observability.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter wraps backend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{backend: backend, logger: observability.NoopLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Get decodes the value stored under key into dst. It reports false when the
// key was never set or the value could not be read or decoded.
func (a *Adapter) Get(ctx context.Context, key string, dst any) bool {
	data, err := a.backend.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		a.logger.Warn("kv read failed", "key", key, "driver", string(a.backend.Driver()), "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		a.logger.Warn("kv decode failed", "key", key, "driver", string(a.backend.Driver()), "error", err)
		return false
	}
	return true
}

// Set JSON-encodes value and overwrites key.
func (a *Adapter) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("kv encode failed", "key", key, "error", err)
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := a.backend.Write(ctx, key, data); err != nil {
		a.logger.Error("kv write failed", "key", key, "driver", string(a.backend.Driver()), "error", err)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key; removing an absent key is not an error.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if _, err := a.backend.Delete(ctx, key); err != nil {
		a.logger.Error("kv delete failed", "key", key, "driver", string(a.backend.Driver()), "error", err)
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// InitializeDefaults stores an empty JSON array under every key that has no
// value yet. Existing values are left untouched.
func (a *Adapter) InitializeDefaults(ctx context.Context, keys []string) error {
	for _, key := range keys {
		_, err := a.backend.Read(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("probe %s: %w", key, err)
		}
		if _, err := a.backend.Write(ctx, key, emptyCollection); err != nil {
			return fmt.Errorf("initialize %s: %w", key, err)
		}
		a.logger.Debug("kv key initialized", "key", key)
	}
	return nil
}

// Entries lists every key the backend holds, ordered by key. Keys left behind
// by a renamed collection show up here even though no repository reads them.
func (a *Adapter) Entries(ctx context.Context) ([]Info, error) {
	infos, err := a.backend.List(ctx, "")
	if err != nil {
		a.logger.Warn("kv list failed", "driver", string(a.backend.Driver()), "error", err)
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return infos, nil
}

// Export returns the raw JSON stored under each key. Keys without a value are
// omitted. A nil keys exports everything the backend holds.
func (a *Adapter) Export(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	if keys == nil {
		infos, err := a.Entries(ctx)
		if err != nil {
			return nil, err
		}
		keys = make([]string, len(infos))
		for i, info := range infos {
			keys[i] = info.Key
		}
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		data, err := a.backend.Read(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		out[key] = json.RawMessage(data)
	}
	return out, nil
}

// Import overwrites each key in snapshot. Every value is validated before
// anything is written.
func (a *Adapter) Import(ctx context.Context, snapshot map[string]json.RawMessage) error {
	keys := make([]string, 0, len(snapshot))
	for key, raw := range snapshot {
		if !json.Valid(raw) {
			return fmt.Errorf("import %s: invalid json", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := a.backend.Write(ctx, key, snapshot[key]); err != nil {
			return fmt.Errorf("import %s: %w", key, err)
		}
	}
	a.logger.Info("kv snapshot imported", "keys", len(keys))
	return nil
}

// Driver reports the wrapped backend's driver.
func (a *Adapter) Driver() Driver { return a.backend.Driver() }

// Backend returns the wrapped backend.
func (a *Adapter) Backend() Backend { return a.backend }

// Close closes the wrapped backend.
func (a *Adapter) Close() error { return a.backend.Close() }
