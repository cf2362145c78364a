// Package domain defines the persisted glucose tracking records, the
// collection keys they are stored under, and their JSON field names.
package domain

import (
	"strings"

	"glucotrack/internal/ident"
)

// Collection identifies the storage key a record kind is persisted under.
// Key names are part of the persisted contract: renaming one orphans the data
// stored under the old key.
type Collection string

// Persisted collection keys.
const (
	CollectionUsers           Collection = "users"
	CollectionGlucoseReadings Collection = "glucose_readings"
	CollectionGlucoseRuns     Collection = "glucose_runs"
	CollectionA1CEstimates    Collection = "a1c_estimates"
	CollectionLabResults      Collection = "a1c_lab_results"
	CollectionPreferences     Collection = "user_preferences"
)

// Collections lists every known collection key in a stable order.
func Collections() []Collection {
	return []Collection{
		CollectionUsers,
		CollectionGlucoseReadings,
		CollectionGlucoseRuns,
		CollectionA1CEstimates,
		CollectionLabResults,
		CollectionPreferences,
	}
}

// ParseCollection resolves a collection key, returning false for unknown names.
func ParseCollection(name string) (Collection, bool) {
	for _, c := range Collections() {
		if string(c) == strings.TrimSpace(name) {
			return c, true
		}
	}
	return "", false
}

// Field names shared by several record kinds. They match the JSON tags below
// and are what repository filters and sorts refer to.
const (
	FieldID          = "id"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldUserID      = "userId"
	FieldRunID       = "runId"
	FieldEmail       = "email"
	FieldTimestamp   = "timestamp"
	FieldMeasuredAt  = "measuredAt"
	FieldStartDate   = "startDate"
	FieldMealContext = "mealContext"
	FieldValue       = "value"
)

// Base contains the identity fields common to all records.
type Base struct {
	ID        string          `json:"id"`
	CreatedAt ident.Timestamp `json:"createdAt"`
	UpdatedAt ident.Timestamp `json:"updatedAt"`
}

// Meta returns the identity fields.
func (b Base) Meta() Base { return b }

// User is an account known to the tracker.
type User struct {
	Base
	Email         string           `json:"email"`
	Name          string           `json:"name"`
	Image         *string          `json:"image,omitempty"`
	EmailVerified *ident.Timestamp `json:"emailVerified,omitempty"`
}

// WithBase returns a copy carrying the supplied identity fields.
func (u User) WithBase(b Base) User { u.Base = b; return u }

// GlucoseReading is a single blood glucose measurement in mg/dL.
type GlucoseReading struct {
	Base
	UserID      string          `json:"userId"`
	Value       float64         `json:"value"`
	Timestamp   ident.Timestamp `json:"timestamp"`
	MealContext MealContext     `json:"mealContext"`
	Notes       *string         `json:"notes,omitempty"`
	RunID       *string         `json:"runId,omitempty"`
}

// WithBase returns a copy carrying the supplied identity fields.
func (r GlucoseReading) WithBase(b Base) GlucoseReading { r.Base = b; return r }

// GlucoseRun groups readings taken over a period so they can be summarised
// into an A1C estimate.
type GlucoseRun struct {
	Base
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	StartDate      ident.Timestamp `json:"startDate"`
	EndDate        ident.Timestamp `json:"endDate"`
	Notes          *string         `json:"notes,omitempty"`
	AverageGlucose *float64        `json:"averageGlucose,omitempty"`
	EstimatedA1C   *float64        `json:"estimatedA1c,omitempty"`
}

// WithBase returns a copy carrying the supplied identity fields.
func (r GlucoseRun) WithBase(b Base) GlucoseRun { r.Base = b; return r }

// A1CEstimate records an A1C value derived from average glucose.
type A1CEstimate struct {
	Base
	UserID         string          `json:"userId"`
	RunID          *string         `json:"runId,omitempty"`
	EstimatedA1C   float64         `json:"estimatedA1c"`
	AverageGlucose float64         `json:"averageGlucose"`
	ReadingCount   int             `json:"readingCount"`
	PeriodStart    ident.Timestamp `json:"periodStart"`
	PeriodEnd      ident.Timestamp `json:"periodEnd"`
}

// WithBase returns a copy carrying the supplied identity fields.
func (e A1CEstimate) WithBase(b Base) A1CEstimate { e.Base = b; return e }

// LabResult is an A1C percentage reported by a laboratory.
type LabResult struct {
	Base
	UserID     string          `json:"userId"`
	Value      float64         `json:"value"`
	MeasuredAt ident.Timestamp `json:"measuredAt"`
	Laboratory *string         `json:"laboratory,omitempty"`
	Notes      *string         `json:"notes,omitempty"`
}

// WithBase returns a copy carrying the supplied identity fields.
func (l LabResult) WithBase(b Base) LabResult { l.Base = b; return l }

// UserPreferences holds per-user display and target settings.
type UserPreferences struct {
	Base
	UserID           string      `json:"userId"`
	GlucoseUnit      GlucoseUnit `json:"glucoseUnit"`
	TargetLow        float64     `json:"targetLow"`
	TargetHigh       float64     `json:"targetHigh"`
	Timezone         string      `json:"timezone"`
	RemindersEnabled bool        `json:"remindersEnabled"`
}

// WithBase returns a copy carrying the supplied identity fields.
func (p UserPreferences) WithBase(b Base) UserPreferences { p.Base = b; return p }

// DefaultPreferences is the record new users start from.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:           userID,
		GlucoseUnit:      UnitMgDL,
		TargetLow:        DefaultTargetLow,
		TargetHigh:       DefaultTargetHigh,
		Timezone:         "UTC",
		RemindersEnabled: false,
	}
}
