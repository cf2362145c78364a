package core

import (
	"glucotrack/internal/observability"
	"glucotrack/pkg/domain"
)

type (
	Base            = domain.Base
	User            = domain.User
	GlucoseReading  = domain.GlucoseReading
	GlucoseRun      = domain.GlucoseRun
	A1CEstimate     = domain.A1CEstimate
	LabResult       = domain.LabResult
	UserPreferences = domain.UserPreferences
	MealContext     = domain.MealContext
	GlucoseUnit     = domain.GlucoseUnit
	Collection      = domain.Collection
)

type (
	Logger          = observability.Logger
	MetricsRecorder = observability.MetricsRecorder
	Tracer          = observability.Tracer
	TraceSpan       = observability.TraceSpan
)

const (
	UnitMgDL  = domain.UnitMgDL
	UnitMmolL = domain.UnitMmolL
)
