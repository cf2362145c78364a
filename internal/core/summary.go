package core

import (
	"context"

	"glucotrack/internal/ident"
)

// UserSummary is a dashboard view over one user's records.
type UserSummary struct {
	User          User            `json:"user"`
	Preferences   UserPreferences `json:"preferences"`
	Window        int             `json:"windowDays"`
	Stats         *ReadingStats   `json:"stats,omitempty"`
	RunCount      int             `json:"runCount"`
	LatestA1C     *A1CEstimate    `json:"latestEstimate,omitempty"`
	LatestLab     *LabResult      `json:"latestLab,omitempty"`
	EstimateDelta *float64        `json:"estimateDelta,omitempty"`
}

// DefaultSummaryWindow is the number of days of readings a summary covers.
const DefaultSummaryWindow = 90

// Summary gathers a user's recent reading statistics against their target
// range with the latest estimate and lab result. It reports false when the
// user does not exist.
func (s *Service) Summary(ctx context.Context, userID string, windowDays int) (UserSummary, bool, error) {
	user, ok := s.users.FindByID(ctx, userID)
	if !ok {
		return UserSummary{}, false, nil
	}
	if windowDays <= 0 {
		windowDays = DefaultSummaryWindow
	}
	prefs, err := s.preferences.ForUser(ctx, userID)
	if err != nil {
		return UserSummary{}, true, err
	}
	out := UserSummary{User: user, Preferences: prefs, Window: windowDays}

	now := ident.Now(s.clock).Time
	readings, err := s.readings.FindByUser(ctx, userID, LastDays(now, windowDays))
	if err != nil {
		return UserSummary{}, true, err
	}
	if stats, ok := Summarize(readings, prefs.TargetLow, prefs.TargetHigh); ok {
		out.Stats = &stats
	}
	if out.RunCount, err = s.runs.Count(ctx, userFilter(userID)); err != nil {
		return UserSummary{}, true, err
	}
	if est, ok, err := s.estimates.Latest(ctx, userID); err != nil {
		return UserSummary{}, true, err
	} else if ok {
		out.LatestA1C = &est
	}
	if lab, ok, err := s.labResults.Latest(ctx, userID); err != nil {
		return UserSummary{}, true, err
	} else if ok {
		out.LatestLab = &lab
	}
	if out.LatestA1C != nil && out.LatestLab != nil {
		delta := out.LatestA1C.EstimatedA1C - out.LatestLab.Value
		out.EstimateDelta = &delta
	}
	return out, true, nil
}
