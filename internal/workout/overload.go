package workout

import "math"

const (
	defaultIncrement           = 2.5
	defaultPercentageIncrement = 2.5

	minOverload         = 0.9
	maxOverload         = 1.1
	maxBeginnerOverload = 1.05
	overloadSensitivity = 0.3
	snapEpsilon         = 1e-9
)

// OverloadMultiplier maps readiness to the load multiplier Delta.
//
// Beginners are capped at 1.05 regardless of readiness.
func OverloadMultiplier(rho float64, level ExperienceLevel) float64 {
	delta := clip(1+overloadSensitivity*(rho-neutralScore), minOverload, maxOverload)
	if level == ExperienceBeginner {
		delta = min(delta, maxBeginnerOverload)
	}
	return delta
}

// RoundToIncrement rounds weight to the nearest multiple of increment. Non-positive increments use 2.5.
func RoundToIncrement(weight, increment float64) float64 {
	if increment <= 0 {
		increment = defaultIncrement
	}
	return math.Round(weight/increment) * increment
}

// SuggestLoad scales the previous working weight by Delta and snaps it down to the increment so that the suggestion
// never exceeds the readiness scaled load.
func SuggestLoad(previous, rho float64, level ExperienceLevel, increment float64) float64 {
	if increment <= 0 {
		increment = defaultIncrement
	}
	scaled := previous * OverloadMultiplier(rho, level)
	return math.Floor(scaled/increment+snapEpsilon) * increment
}
