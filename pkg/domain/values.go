package domain

// MealContext describes when a reading was taken relative to a meal.
type MealContext string

// Meal contexts accepted for glucose readings.
const (
	MealFasting    MealContext = "fasting"
	MealBeforeMeal MealContext = "before_meal"
	MealAfterMeal  MealContext = "after_meal"
	MealBedtime    MealContext = "bedtime"
	MealRandom     MealContext = "random"
)

// Valid reports whether m is one of the known meal contexts.
func (m MealContext) Valid() bool {
	switch m {
	case MealFasting, MealBeforeMeal, MealAfterMeal, MealBedtime, MealRandom:
		return true
	default:
		return false
	}
}

// GlucoseUnit is the display unit for glucose values. Values are always
// stored in mg/dL.
type GlucoseUnit string

// Supported display units.
const (
	UnitMgDL  GlucoseUnit = "mg/dL"
	UnitMmolL GlucoseUnit = "mmol/L"
)

// Valid reports whether u is a supported unit.
func (u GlucoseUnit) Valid() bool {
	return u == UnitMgDL || u == UnitMmolL
}

// Default target range in mg/dL.
const (
	DefaultTargetLow  = 70.0
	DefaultTargetHigh = 180.0
)
