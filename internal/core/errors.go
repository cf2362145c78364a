package core

import (
	"fmt"
	"time"

	"glucotrack/internal/ident"
	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// ValidationError reports input rejected before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DateRange bounds a timestamp field inclusively. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// LastDays returns the range covering the d days up to now.
func LastDays(now time.Time, d int) DateRange {
	return DateRange{From: now.AddDate(0, 0, -d), To: now}
}

func (r DateRange) validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return ValidationError{Field: "range", Reason: "end precedes start"}
	}
	return nil
}

// filter narrows f to field within the range.
func (r DateRange) filter(f repository.Filter, field string) repository.Filter {
	var conds []repository.Condition
	if !r.From.IsZero() {
		conds = append(conds, repository.Gte(ident.TimestampOf(r.From)))
	}
	if !r.To.IsZero() {
		conds = append(conds, repository.Lte(ident.TimestampOf(r.To)))
	}
	if len(conds) == 0 {
		return f
	}
	return f.And(field, conds...)
}

func userFilter(userID string) repository.Filter {
	return repository.Where(domain.FieldUserID, repository.Eq(userID))
}

// newestFirst sorts on field descending, then by opts, and finally puts the
// later-created record first when timestamps collide at millisecond precision.
func newestFirst(field string, opts ...repository.QueryOption) []repository.QueryOption {
	out := make([]repository.QueryOption, 0, len(opts)+2)
	out = append(out, repository.SortBy(field, repository.Desc))
	out = append(out, opts...)
	return append(out, repository.ThenByInsertion(repository.Desc))
}
