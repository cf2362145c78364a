// Package memory implements an in-memory key-value backend, used for tests
// and as the fallback when no persistent medium is reachable.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"glucotrack/internal/kv/core"
)

type entry struct {
	info core.Info
	data []byte
}

// Store implements core.Backend backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]entry
	now  func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{objs: make(map[string]entry), now: func() time.Time { return time.Now().UTC() }}
}

// Driver returns the backend identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Read returns a copy of the value stored under key.
func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

// Write stores a copy of value under key.
func (s *Store) Write(_ context.Context, key string, value []byte) (core.Info, error) {
	data := make([]byte, len(value))
	copy(data, value)
	sum := sha256.Sum256(data)
	info := core.Info{Key: key, Size: int64(len(data)), ETag: hex.EncodeToString(sum[:]), LastModified: s.now()}

	s.mu.Lock()
	s.objs[key] = entry{info: info, data: data}
	s.mu.Unlock()
	return info, nil
}

// Delete removes the value returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	if ok {
		delete(s.objs, key)
	}
	return ok, nil
}

// List returns all entries matching prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, v.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op; contents live until the store is garbage collected.
func (s *Store) Close() error { return nil }
