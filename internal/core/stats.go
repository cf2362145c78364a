package core

import (
	"math"

	"glucotrack/internal/ident"
)

// MgDLPerMmolL converts between glucose units.
const MgDLPerMmolL = 18.0182

// AverageGlucose returns the mean reading value in mg/dL. It reports false
// for an empty slice.
func AverageGlucose(readings []GlucoseReading) (float64, bool) {
	if len(readings) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range readings {
		sum += r.Value
	}
	return sum / float64(len(readings)), true
}

// EstimateA1C converts an average glucose in mg/dL to an A1C percentage
// using the ADAG regression.
func EstimateA1C(avgMgDL float64) float64 {
	return (avgMgDL + 46.7) / 28.7
}

// EstimatedAverageGlucose is the inverse of EstimateA1C.
func EstimatedAverageGlucose(a1c float64) float64 {
	return 28.7*a1c - 46.7
}

// ToMmolL converts mg/dL to mmol/L.
func ToMmolL(mgdl float64) float64 { return mgdl / MgDLPerMmolL }

// ToMgDL converts mmol/L to mg/dL.
func ToMgDL(mmol float64) float64 { return mmol * MgDLPerMmolL }

// ConvertTo renders an mg/dL value in unit.
func ConvertTo(mgdl float64, unit GlucoseUnit) float64 {
	if unit == UnitMmolL {
		return ToMmolL(mgdl)
	}
	return mgdl
}

// TimeInRange returns the percentage of readings within [low, high].
func TimeInRange(readings []GlucoseReading, low, high float64) float64 {
	if len(readings) == 0 {
		return 0
	}
	in := 0
	for _, r := range readings {
		if r.Value >= low && r.Value <= high {
			in++
		}
	}
	return 100 * float64(in) / float64(len(readings))
}

// ReadingStats summarises a set of readings. Percentages are 0..100.
type ReadingStats struct {
	Count        int             `json:"count"`
	Average      float64         `json:"average"`
	Min          float64         `json:"min"`
	Max          float64         `json:"max"`
	StdDev       float64         `json:"stdDev"`
	EstimatedA1C float64         `json:"estimatedA1c"`
	InRange      float64         `json:"inRange"`
	BelowRange   float64         `json:"belowRange"`
	AboveRange   float64         `json:"aboveRange"`
	First        ident.Timestamp `json:"first"`
	Last         ident.Timestamp `json:"last"`
}

// Summarize computes ReadingStats against the [low, high] target range. It
// reports false for an empty slice.
func Summarize(readings []GlucoseReading, low, high float64) (ReadingStats, bool) {
	avg, ok := AverageGlucose(readings)
	if !ok {
		return ReadingStats{}, false
	}
	stats := ReadingStats{
		Count:        len(readings),
		Average:      avg,
		Min:          math.Inf(1),
		Max:          math.Inf(-1),
		EstimatedA1C: EstimateA1C(avg),
		InRange:      TimeInRange(readings, low, high),
		First:        readings[0].Timestamp,
		Last:         readings[0].Timestamp,
	}
	var below, above, sq float64
	for _, r := range readings {
		stats.Min = math.Min(stats.Min, r.Value)
		stats.Max = math.Max(stats.Max, r.Value)
		if r.Value < low {
			below++
		} else if r.Value > high {
			above++
		}
		sq += (r.Value - avg) * (r.Value - avg)
		if r.Timestamp.Before(stats.First.Time) {
			stats.First = r.Timestamp
		}
		if r.Timestamp.After(stats.Last.Time) {
			stats.Last = r.Timestamp
		}
	}
	n := float64(len(readings))
	stats.StdDev = math.Sqrt(sq / n)
	stats.BelowRange = 100 * below / n
	stats.AboveRange = 100 * above / n
	return stats, true
}
