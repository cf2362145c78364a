package repository

import (
	"fmt"
	"sort"
	"strings"
)

// Direction orders a sort key.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc" or "desc" (case-insensitive, empty is asc).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return Asc, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidQuery, s)
}

// QueryOption shapes the result of FindMany and FindFirst.
type QueryOption func(*query)

type sortKey struct {
	field string
	dir   Direction
}

type query struct {
	skip      int
	limit     int
	hasLimit  bool
	sorts     []sortKey
	// insertion orders entries the sort keys leave tied; nil keeps stored order.
	insertion *Direction
	err       error
}

// WithSkip drops the first n matches after sorting.
func WithSkip(n int) QueryOption {
	return func(q *query) {
		if n < 0 {
			q.fail(fmt.Errorf("%w: negative skip %d", ErrInvalidQuery, n))
			return
		}
		q.skip = n
	}
}

// WithLimit keeps at most n matches after skipping. Zero yields no results.
func WithLimit(n int) QueryOption {
	return func(q *query) {
		if n < 0 {
			q.fail(fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, n))
			return
		}
		q.limit = n
		q.hasLimit = true
	}
}

// SortBy adds a sort key. Repeated calls break ties in call order.
func SortBy(field string, dir Direction) QueryOption {
	return func(q *query) {
		if strings.TrimSpace(field) == "" {
			q.fail(fmt.Errorf("%w: empty sort field", ErrInvalidQuery))
			return
		}
		if dir != Asc && dir != Desc {
			q.fail(fmt.Errorf("%w: invalid sort direction %d", ErrInvalidQuery, dir))
			return
		}
		q.sorts = append(q.sorts, sortKey{field: field, dir: dir})
	}
}

// ThenByInsertion orders entries still tied after every SortBy key by their
// position in the collection. Desc puts the most recently created first.
func ThenByInsertion(dir Direction) QueryOption {
	return func(q *query) {
		if dir != Asc && dir != Desc {
			q.fail(fmt.Errorf("%w: invalid sort direction %d", ErrInvalidQuery, dir))
			return
		}
		q.insertion = &dir
	}
}

func (q *query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

func buildQuery(opts []QueryOption) (query, error) {
	var q query
	for _, opt := range opts {
		if opt != nil {
			opt(&q)
		}
	}
	return q, q.err
}

// apply sorts idx by the documents at those positions, then pages.
func (q query) apply(idx []int, docs []map[string]any) []int {
	if len(q.sorts) > 0 || q.insertion != nil {
		sort.SliceStable(idx, func(i, j int) bool {
			a, b := docs[idx[i]], docs[idx[j]]
			for _, key := range q.sorts {
				cmp := sortCompare(a[key.field], b[key.field])
				if cmp == 0 {
					continue
				}
				if key.dir == Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			if q.insertion != nil && *q.insertion == Desc {
				return idx[i] > idx[j]
			}
			return false
		})
	}
	if q.skip >= len(idx) {
		return nil
	}
	idx = idx[q.skip:]
	if q.hasLimit && q.limit < len(idx) {
		idx = idx[:q.limit]
	}
	return idx
}
