package core

import (
	"context"
	"math"

	"glucotrack/internal/ident"
	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// Readings stores glucose measurements.
type Readings struct {
	*repository.Repository[GlucoseReading]
	clock ident.Clock
}

func validateReading(r GlucoseReading) error {
	if r.UserID == "" {
		return ValidationError{Field: domain.FieldUserID, Reason: "required"}
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) || r.Value <= 0 {
		return ValidationError{Field: domain.FieldValue, Reason: "must be a positive number"}
	}
	if !r.MealContext.Valid() {
		return ValidationError{Field: domain.FieldMealContext, Reason: "unknown meal context " + string(r.MealContext)}
	}
	return nil
}

// Record validates and stores a reading. A missing timestamp defaults to now
// and a missing meal context to random.
func (r *Readings) Record(ctx context.Context, reading GlucoseReading) (GlucoseReading, error) {
	if reading.MealContext == "" {
		reading.MealContext = domain.MealRandom
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = ident.Now(r.clock)
	}
	if err := validateReading(reading); err != nil {
		return GlucoseReading{}, err
	}
	return r.Create(ctx, reading)
}

// FindByUser returns a user's readings within rng, newest first. Sort options
// in opts break ties after the timestamp.
func (r *Readings) FindByUser(ctx context.Context, userID string, rng DateRange, opts ...repository.QueryOption) ([]GlucoseReading, error) {
	if err := rng.validate(); err != nil {
		return nil, err
	}
	filter := rng.filter(repository.Where(domain.FieldUserID, repository.Eq(userID)), domain.FieldTimestamp)
	return r.FindMany(ctx, filter, newestFirst(domain.FieldTimestamp, opts...)...)
}

// FindByRun returns the readings attached to a run in chronological order.
func (r *Readings) FindByRun(ctx context.Context, runID string) ([]GlucoseReading, error) {
	return r.FindMany(ctx, repository.Where(domain.FieldRunID, repository.Eq(runID)),
		repository.SortBy(domain.FieldTimestamp, repository.Asc))
}

// Recent returns a user's n newest readings.
func (r *Readings) Recent(ctx context.Context, userID string, n int) ([]GlucoseReading, error) {
	return r.FindByUser(ctx, userID, DateRange{}, repository.WithLimit(n))
}
