package core

import (
	"context"
	"math"

	"glucotrack/internal/ident"
	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// LabResults stores laboratory A1C measurements.
type LabResults struct {
	*repository.Repository[LabResult]
	clock ident.Clock
}

// Record validates and stores a lab result. A1C is a percentage, so values
// outside (0, 100] are rejected.
func (l *LabResults) Record(ctx context.Context, result LabResult) (LabResult, error) {
	if result.UserID == "" {
		return LabResult{}, ValidationError{Field: domain.FieldUserID, Reason: "required"}
	}
	if math.IsNaN(result.Value) || result.Value <= 0 || result.Value > 100 {
		return LabResult{}, ValidationError{Field: domain.FieldValue, Reason: "must be a percentage"}
	}
	if result.MeasuredAt.IsZero() {
		result.MeasuredAt = ident.Now(l.clock)
	}
	return l.Create(ctx, result)
}

// FindByUser returns a user's lab results within rng, newest first.
func (l *LabResults) FindByUser(ctx context.Context, userID string, rng DateRange, opts ...repository.QueryOption) ([]LabResult, error) {
	if err := rng.validate(); err != nil {
		return nil, err
	}
	filter := rng.filter(repository.Where(domain.FieldUserID, repository.Eq(userID)), domain.FieldMeasuredAt)
	return l.FindMany(ctx, filter, newestFirst(domain.FieldMeasuredAt, opts...)...)
}

// Latest returns the most recently measured result for a user.
func (l *LabResults) Latest(ctx context.Context, userID string) (LabResult, bool, error) {
	return l.FindFirst(ctx, repository.Where(domain.FieldUserID, repository.Eq(userID)),
		newestFirst(domain.FieldMeasuredAt)...)
}
