package core

import (
	"context"
	"errors"
	"strings"

	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// Runs stores reading runs and links readings to them.
type Runs struct {
	*repository.Repository[GlucoseRun]
	readings  *Readings
	estimates *Estimates
}

// RunSummary is the outcome of Summarize.
type RunSummary struct {
	Run      GlucoseRun   `json:"run"`
	Estimate A1CEstimate  `json:"estimate"`
	Stats    ReadingStats `json:"stats"`
}

var errForeignReading = errors.New("reading belongs to another user")

func validateRun(run GlucoseRun) error {
	if run.UserID == "" {
		return ValidationError{Field: domain.FieldUserID, Reason: "required"}
	}
	if strings.TrimSpace(run.Name) == "" {
		return ValidationError{Field: "name", Reason: "required"}
	}
	if run.StartDate.IsZero() {
		return ValidationError{Field: domain.FieldStartDate, Reason: "required"}
	}
	if !run.EndDate.IsZero() && run.EndDate.Before(run.StartDate.Time) {
		return ValidationError{Field: "endDate", Reason: "precedes startDate"}
	}
	return nil
}

// FindByUser returns a user's runs, most recently started first.
func (r *Runs) FindByUser(ctx context.Context, userID string, opts ...repository.QueryOption) ([]GlucoseRun, error) {
	return r.FindMany(ctx, repository.Where(domain.FieldUserID, repository.Eq(userID)),
		newestFirst(domain.FieldStartDate, opts...)...)
}

// CreateWithReadings creates run and points each listed reading at it.
// Readings are updated one at a time with no rollback: ids that do not exist
// or belong to another user are returned as missing, and a write failure
// leaves earlier readings attached.
func (r *Runs) CreateWithReadings(ctx context.Context, run GlucoseRun, readingIDs []string) (GlucoseRun, []string, error) {
	if err := validateRun(run); err != nil {
		return GlucoseRun{}, nil, err
	}
	created, err := r.Create(ctx, run)
	if err != nil {
		return GlucoseRun{}, nil, err
	}
	var missing []string
	for _, id := range readingIDs {
		_, found, err := r.readings.Update(ctx, id, func(reading *GlucoseReading) error {
			if reading.UserID != created.UserID {
				return errForeignReading
			}
			runID := created.ID
			reading.RunID = &runID
			return nil
		})
		if errors.Is(err, errForeignReading) || (err == nil && !found) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return created, missing, err
		}
	}
	return created, missing, nil
}

// Summarize averages the run's readings, stores the average and A1C on the
// run and records an A1CEstimate. It reports false when the run is unknown.
func (r *Runs) Summarize(ctx context.Context, runID string) (RunSummary, bool, error) {
	run, ok := r.FindByID(ctx, runID)
	if !ok {
		return RunSummary{}, false, nil
	}
	readings, err := r.readings.FindByRun(ctx, runID)
	if err != nil {
		return RunSummary{}, true, err
	}
	stats, ok := Summarize(readings, domain.DefaultTargetLow, domain.DefaultTargetHigh)
	if !ok {
		return RunSummary{}, true, ValidationError{Field: "readings", Reason: "run has no readings"}
	}
	estimate, err := r.estimates.RecordFromReadings(ctx, run.UserID, readings, &run.ID)
	if err != nil {
		return RunSummary{}, true, err
	}
	updated, found, err := r.Update(ctx, runID, func(gr *GlucoseRun) error {
		avg, a1c := stats.Average, stats.EstimatedA1C
		gr.AverageGlucose = &avg
		gr.EstimatedA1C = &a1c
		return nil
	})
	if err != nil {
		return RunSummary{}, true, err
	}
	if !found {
		// Deleted concurrently; report the computed values against the last seen run.
		updated = run
	}
	return RunSummary{Run: updated, Estimate: estimate, Stats: stats}, true, nil
}
