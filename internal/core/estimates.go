package core

import (
	"context"

	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// Estimates stores A1C values derived from readings.
type Estimates struct {
	*repository.Repository[A1CEstimate]
}

// FindByUser returns a user's estimates, newest first.
func (e *Estimates) FindByUser(ctx context.Context, userID string, opts ...repository.QueryOption) ([]A1CEstimate, error) {
	return e.FindMany(ctx, repository.Where(domain.FieldUserID, repository.Eq(userID)),
		newestFirst(domain.FieldCreatedAt, opts...)...)
}

// FindByRun returns the estimates computed for a run, newest first.
func (e *Estimates) FindByRun(ctx context.Context, runID string) ([]A1CEstimate, error) {
	return e.FindMany(ctx, repository.Where(domain.FieldRunID, repository.Eq(runID)),
		newestFirst(domain.FieldCreatedAt)...)
}

// Latest returns the most recent estimate for a user.
func (e *Estimates) Latest(ctx context.Context, userID string) (A1CEstimate, bool, error) {
	return e.FindFirst(ctx, repository.Where(domain.FieldUserID, repository.Eq(userID)),
		newestFirst(domain.FieldCreatedAt)...)
}

// RecordFromReadings derives and stores an estimate from readings. runID may
// be nil for ad-hoc estimates.
func (e *Estimates) RecordFromReadings(ctx context.Context, userID string, readings []GlucoseReading, runID *string) (A1CEstimate, error) {
	if userID == "" {
		return A1CEstimate{}, ValidationError{Field: domain.FieldUserID, Reason: "required"}
	}
	stats, ok := Summarize(readings, domain.DefaultTargetLow, domain.DefaultTargetHigh)
	if !ok {
		return A1CEstimate{}, ValidationError{Field: "readings", Reason: "at least one reading is required"}
	}
	return e.Create(ctx, A1CEstimate{
		UserID:         userID,
		RunID:          runID,
		EstimatedA1C:   stats.EstimatedA1C,
		AverageGlucose: stats.Average,
		ReadingCount:   stats.Count,
		PeriodStart:    stats.First,
		PeriodEnd:      stats.Last,
	})
}
