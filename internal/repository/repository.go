// Package repository implements a generic document repository over a JSON
// key-value store. Each repository owns one key whose value is the full
// collection; every operation loads it, works in memory, and writes it back.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"glucotrack/internal/ident"
	"glucotrack/internal/observability"
	"glucotrack/pkg/domain"
)

// Entity is implemented by every stored record type. WithBase returns a copy
// carrying the given identity and timestamps.
type Entity[T any] interface {
	Meta() domain.Base
	WithBase(domain.Base) T
}

// Store is the persistence contract a repository needs. Get reports false
// when the key has no readable value.
type Store interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any) error
}

// Collection is a type-erased view over a repository for generic tooling.
type Collection interface {
	Key() string
	FindAny(ctx context.Context, filter Filter, opts ...QueryOption) ([]any, error)
	GetAny(ctx context.Context, id string) (any, bool)
	Remove(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

// Option configures a Repository.
type Option func(*settings)

type settings struct {
	newID func() string
	clock ident.Clock
	inst  observability.Instrumentation
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the clock used for createdAt/updatedAt.
func WithClock(c ident.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInstrumentation attaches logging, metrics and tracing hooks.
func WithInstrumentation(inst observability.Instrumentation) Option {
	return func(s *settings) { s.inst = inst }
}

// Repository stores entities of type T under a single key.
type Repository[T Entity[T]] struct {
	key   string
	store Store
	mu    sync.Mutex
	newID func() string
	clock ident.Clock
	inst  observability.Instrumentation
}

// New constructs a repository bound to key.
func New[T Entity[T]](key string, store Store, opts ...Option) *Repository[T] {
	s := settings{newID: ident.GenerateID, clock: ident.SystemClock{}}
	for _, opt := range opts {
		opt(&s)
	}
	return &Repository[T]{key: key, store: store, newID: s.newID, clock: s.clock, inst: s.inst.Normalize()}
}

// Key returns the storage key.
func (r *Repository[T]) Key() string { return r.key }

func (r *Repository[T]) load(ctx context.Context) []T {
	var items []T
	if !r.store.Get(ctx, r.key, &items) {
		return nil
	}
	return items
}

func (r *Repository[T]) persist(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	if err := r.store.Set(ctx, r.key, items); err != nil {
		return fmt.Errorf("persist %s: %w", r.key, err)
	}
	return nil
}

func (r *Repository[T]) op(name string) string { return r.key + "." + name }

// Create assigns a fresh id and a shared created/updated timestamp to data,
// appends it and persists the collection. Identity fields on data are ignored.
func (r *Repository[T]) Create(ctx context.Context, data T) (T, error) {
	var created T
	err := r.inst.Run(ctx, r.op("create"), func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		now := ident.Now(r.clock)
		entity := data.WithBase(domain.Base{ID: r.newID(), CreatedAt: now, UpdatedAt: now})
		items := append(r.load(ctx), entity)
		if err := r.persist(ctx, items); err != nil {
			return err
		}
		created = entity
		return nil
	})
	return created, err
}

// FindByID returns the entity with id.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, bool) {
	var (
		found T
		ok    bool
	)
	_ = r.inst.Run(ctx, r.op("get"), func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, item := range r.load(ctx) {
			if item.Meta().ID == id {
				found, ok = item, true
				return nil
			}
		}
		return nil
	})
	return found, ok
}

// FindMany returns entities matching filter, sorted, skipped and limited per
// opts. The result is never nil.
func (r *Repository[T]) FindMany(ctx context.Context, filter Filter, opts ...QueryOption) ([]T, error) {
	var out []T
	err := r.inst.Run(ctx, r.op("find"), func(ctx context.Context) error {
		r.mu.Lock()
		items := r.load(ctx)
		r.mu.Unlock()
		idx, err := selectItems(items, filter, opts)
		if err != nil {
			return err
		}
		out = make([]T, 0, len(idx))
		for _, i := range idx {
			out = append(out, items[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindFirst returns the first entity FindMany would return.
func (r *Repository[T]) FindFirst(ctx context.Context, filter Filter, opts ...QueryOption) (T, bool, error) {
	var zero T
	first := make([]QueryOption, 0, len(opts)+1)
	first = append(append(first, opts...), WithLimit(1))
	results, err := r.FindMany(ctx, filter, first...)
	if err != nil {
		return zero, false, err
	}
	if len(results) == 0 {
		return zero, false, nil
	}
	return results[0], true, nil
}

// Count returns the number of entities matching filter.
func (r *Repository[T]) Count(ctx context.Context, filter Filter) (int, error) {
	var n int
	err := r.inst.Run(ctx, r.op("count"), func(ctx context.Context) error {
		r.mu.Lock()
		items := r.load(ctx)
		r.mu.Unlock()
		idx, err := selectItems(items, filter, nil)
		if err != nil {
			return err
		}
		n = len(idx)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Update applies mutate to a copy of the entity with id. The id and createdAt
// are restored afterwards and updatedAt is refreshed, never moving backwards
// when the clock does. A missing id reports
// false without side effects; a mutate error aborts without writing.
func (r *Repository[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, bool, error) {
	return r.modify(ctx, "update", id, func(current T) (T, error) {
		next := current
		if mutate != nil {
			if err := mutate(&next); err != nil {
				return next, err
			}
		}
		return next, nil
	})
}

// Patch merges fields into the entity's JSON form, ignoring id, createdAt and
// updatedAt. A nil value clears the field.
func (r *Repository[T]) Patch(ctx context.Context, id string, fields map[string]any) (T, bool, error) {
	return r.modify(ctx, "patch", id, func(current T) (T, error) {
		var next T
		doc, err := toDocument(current)
		if err != nil {
			return next, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		for k, v := range fields {
			switch k {
			case domain.FieldID, domain.FieldCreatedAt, domain.FieldUpdatedAt:
				continue
			}
			doc[k] = v
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return next, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&next); err != nil {
			return next, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		return next, nil
	})
}

func (r *Repository[T]) modify(ctx context.Context, name, id string, change func(T) (T, error)) (T, bool, error) {
	var (
		updated T
		found   bool
	)
	err := r.inst.Run(ctx, r.op(name), func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		items := r.load(ctx)
		for i, item := range items {
			orig := item.Meta()
			if orig.ID != id {
				continue
			}
			next, err := change(item)
			if err != nil {
				return fmt.Errorf("%s %s/%s: %w", name, r.key, id, err)
			}
			next = next.WithBase(domain.Base{
				ID:        orig.ID,
				CreatedAt: orig.CreatedAt,
				UpdatedAt: ident.Max(ident.Max(ident.Now(r.clock), orig.UpdatedAt), orig.CreatedAt),
			})
			items[i] = next
			if err := r.persist(ctx, items); err != nil {
				return err
			}
			updated, found = next, true
			return nil
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return updated, found, nil
}

// Delete removes the entity with id, persists the collection (unchanged when
// id is unknown) and reports whether something was removed.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.inst.Run(ctx, r.op("delete"), func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		items := r.load(ctx)
		kept := make([]T, 0, len(items))
		for _, item := range items {
			if item.Meta().ID == id {
				continue
			}
			kept = append(kept, item)
		}
		if err := r.persist(ctx, kept); err != nil {
			return err
		}
		removed = len(kept) != len(items)
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// FindAny is FindMany with results boxed as any.
func (r *Repository[T]) FindAny(ctx context.Context, filter Filter, opts ...QueryOption) ([]any, error) {
	items, err := r.FindMany(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out, nil
}

// GetAny is FindByID with the result boxed as any.
func (r *Repository[T]) GetAny(ctx context.Context, id string) (any, bool) {
	item, ok := r.FindByID(ctx, id)
	if !ok {
		return nil, false
	}
	return item, true
}

// Remove is an alias of Delete for the Collection interface.
func (r *Repository[T]) Remove(ctx context.Context, id string) (bool, error) {
	return r.Delete(ctx, id)
}

func selectItems[T any](items []T, filter Filter, opts []QueryOption) ([]int, error) {
	q, err := buildQuery(opts)
	if err != nil {
		return nil, err
	}
	f, err := filter.compile()
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, len(items))
	idx := make([]int, 0, len(items))
	for i, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, fmt.Errorf("encode entity: %w", err)
		}
		docs[i] = doc
		if f.matches(doc) {
			idx = append(idx, i)
		}
	}
	return q.apply(idx, docs), nil
}
