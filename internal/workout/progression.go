package workout

import (
	"fmt"
)

// Strategy selects how the next target is derived.
type Strategy string

const (
	StrategyLinear     Strategy = "linear"
	StrategyPercentage Strategy = "percentage"
	StrategyAdaptive   Strategy = "adaptive"
)

// ParseStrategy falls back to adaptive for unknown values.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyLinear, StrategyPercentage, StrategyAdaptive:
		return Strategy(s)
	default:
		return StrategyAdaptive
	}
}

const (
	defaultStartingWeight   = 20
	defaultPlateauThreshold = 0.05

	goodReadiness     = 0.7
	moderateReadiness = 0.4

	goodReadinessFactor     = 1.05
	moderateReadinessFactor = 1.0
	poorReadinessFactor     = 0.975
	deloadFactor            = 0.9
	plateauPushFactor       = 1.025
)

// ProgressionOptions configures [SuggestProgression].
type ProgressionOptions struct {
	Strategy            Strategy
	LinearIncrement     float64
	PercentageIncrement float64
	// WeightIncrement is the plate increment used for rounding.
	WeightIncrement  float64
	ProgressionModel ProgressionModel
	// PlateauThreshold is the relative best-set volume growth at or below which a plateau is flagged.
	PlateauThreshold float64
}

// ProgressionOptionsFromProfile derives options from user preferences.
func ProgressionOptionsFromProfile(p Profile, strategy Strategy, plateauThreshold float64) ProgressionOptions {
	return ProgressionOptions{
		Strategy:            strategy,
		LinearIncrement:     p.LinearIncrement,
		PercentageIncrement: p.PercentageIncrement,
		WeightIncrement:     p.WeightIncrement,
		ProgressionModel:    p.ProgressionModel,
		PlateauThreshold:    plateauThreshold,
	}
}

func (o ProgressionOptions) withDefaults() ProgressionOptions {
	if o.LinearIncrement <= 0 {
		o.LinearIncrement = defaultIncrement
	}
	if o.PercentageIncrement <= 0 {
		o.PercentageIncrement = defaultPercentageIncrement
	}
	if o.WeightIncrement <= 0 {
		o.WeightIncrement = defaultIncrement
	}
	if o.PlateauThreshold <= 0 {
		o.PlateauThreshold = defaultPlateauThreshold
	}
	if o.ProgressionModel == "" {
		o.ProgressionModel = ProgressionModelReps
	}
	o.Strategy = ParseStrategy(string(o.Strategy))
	return o
}

// SuggestProgression proposes the next target for one exercise from its history, most recent session first.
func SuggestProgression(
	exerciseName string,
	history []ExerciseSessionRecord,
	rho float64,
	opts ProgressionOptions,
) []Suggestion {
	opts = opts.withDefaults()

	var (
		best  SetRecord
		found bool
	)
	if len(history) > 0 {
		best, found = history[0].BestSet()
	}
	if !found {
		return []Suggestion{{
			ExerciseName:    exerciseName,
			Type:            SuggestionWeight,
			Current:         0,
			Suggested:       defaultStartingWeight,
			Weight:          0,
			Rationale:       "no historical data",
			PlateauDetected: false,
		}}
	}

	plateau := detectPlateau(history, opts.PlateauThreshold)

	suggestion := Suggestion{
		ExerciseName:    exerciseName,
		Type:            SuggestionWeight,
		Current:         best.Weight,
		Suggested:       best.Weight,
		Weight:          0,
		Rationale:       "",
		PlateauDetected: plateau,
	}

	switch opts.Strategy {
	case StrategyLinear:
		suggestion.Suggested = RoundToIncrement(best.Weight+opts.LinearIncrement, opts.WeightIncrement)
		suggestion.Rationale = fmt.Sprintf("linear progression: add %.4g", opts.LinearIncrement)
	case StrategyPercentage:
		suggestion.Suggested = RoundToIncrement(best.Weight*(1+opts.PercentageIncrement/100), opts.WeightIncrement)
		suggestion.Rationale = fmt.Sprintf("percentage progression: add %.4g%%", opts.PercentageIncrement)
	case StrategyAdaptive:
		suggestion = adaptiveSuggestion(suggestion, best, rho, opts)
	}

	return []Suggestion{suggestion}
}

func adaptiveSuggestion(s Suggestion, best SetRecord, rho float64, opts ProgressionOptions) Suggestion {
	factor, rationale := adaptiveFactor(s.PlateauDetected, rho)
	// Deloads reduce the weight whatever the progression model is.
	deload := s.PlateauDetected && rho < goodReadiness

	if deload || (opts.ProgressionModel == ProgressionModelWeight && factor != moderateReadinessFactor) {
		s.Type = SuggestionWeight
		s.Suggested = RoundToIncrement(best.Weight*factor, opts.WeightIncrement)
		s.Rationale = rationale
		return s
	}

	s.Type = SuggestionReps
	s.Current = float64(best.Reps)
	s.Suggested = float64(best.Reps + 1)
	s.Weight = best.Weight
	s.Rationale = rationale + ", add one rep at the same weight"
	return s
}

func adaptiveFactor(plateau bool, rho float64) (float64, string) {
	switch {
	case plateau && rho < goodReadiness:
		return deloadFactor, "plateau with low readiness: deload 10%"
	case plateau:
		return plateauPushFactor, "plateau with good readiness: push 2.5%"
	case rho >= goodReadiness:
		return goodReadinessFactor, "good readiness"
	case rho >= moderateReadiness:
		return moderateReadinessFactor, "moderate readiness"
	default:
		return poorReadinessFactor, "poor readiness"
	}
}

// detectPlateau compares the best-set volume of the two most recent sessions.
func detectPlateau(history []ExerciseSessionRecord, threshold float64) bool {
	if len(history) < 2 { //nolint:mnd // two sessions to compare.
		return false
	}
	current, ok := history[0].BestSet()
	if !ok {
		return false
	}
	previous, ok := history[1].BestSet()
	if !ok || previous.Volume() <= 0 {
		return false
	}
	return current.Volume()-previous.Volume() <= threshold*previous.Volume()
}
