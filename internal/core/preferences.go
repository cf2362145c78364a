package core

import (
	"context"
	"time"

	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// Preferences stores one settings record per user.
type Preferences struct {
	*repository.Repository[UserPreferences]
}

func validatePreferences(p UserPreferences) error {
	if !p.GlucoseUnit.Valid() {
		return ValidationError{Field: "glucoseUnit", Reason: "unsupported unit " + string(p.GlucoseUnit)}
	}
	if p.TargetLow <= 0 || p.TargetHigh <= p.TargetLow {
		return ValidationError{Field: "targetRange", Reason: "low must be positive and below high"}
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil || p.Timezone == "" {
		return ValidationError{Field: "timezone", Reason: "unknown timezone " + p.Timezone}
	}
	return nil
}

// FindByUser returns the preferences record for a user.
func (p *Preferences) FindByUser(ctx context.Context, userID string) (UserPreferences, bool, error) {
	return p.FindFirst(ctx, repository.Where(domain.FieldUserID, repository.Eq(userID)))
}

// ForUser returns the stored preferences or the defaults when none exist.
func (p *Preferences) ForUser(ctx context.Context, userID string) (UserPreferences, error) {
	prefs, ok, err := p.FindByUser(ctx, userID)
	if err != nil {
		return UserPreferences{}, err
	}
	if !ok {
		return domain.DefaultPreferences(userID), nil
	}
	return prefs, nil
}

// Upsert applies mutate to the user's preferences, creating them from
// domain.DefaultPreferences when absent. The two steps are not atomic across
// processes.
func (p *Preferences) Upsert(ctx context.Context, userID string, mutate func(*UserPreferences) error) (UserPreferences, error) {
	if userID == "" {
		return UserPreferences{}, ValidationError{Field: domain.FieldUserID, Reason: "required"}
	}
	apply := func(prefs *UserPreferences) error {
		if mutate != nil {
			if err := mutate(prefs); err != nil {
				return err
			}
		}
		prefs.UserID = userID
		return validatePreferences(*prefs)
	}
	existing, ok, err := p.FindByUser(ctx, userID)
	if err != nil {
		return UserPreferences{}, err
	}
	if ok {
		updated, found, err := p.Update(ctx, existing.ID, apply)
		if err != nil {
			return UserPreferences{}, err
		}
		if found {
			return updated, nil
		}
	}
	prefs := domain.DefaultPreferences(userID)
	if err := apply(&prefs); err != nil {
		return UserPreferences{}, err
	}
	return p.Create(ctx, prefs)
}
