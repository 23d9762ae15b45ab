package workout

import "time"

// evalWindow carries the time-dependent parameters of a single evaluation run.
type evalWindow struct {
	volumeSince   time.Time
	repsLoadRatio float64
}

// milestoneEvaluator reports whether the milestone is met by the performances, most recent session first, and the
// value that met it.
type milestoneEvaluator func(m Milestone, performances []ExerciseSessionRecord, w evalWindow) (bool, float64)

//nolint:gochecknoglobals // dispatch table of pure functions.
var milestoneEvaluators = map[MilestoneType]milestoneEvaluator{
	MilestoneAbsoluteWeight:       evaluateBestOneRepMax,
	MilestoneBodyweightMultiplier: evaluateBestOneRepMax,
	MilestoneVolume:               evaluateRecentVolume,
	MilestoneReps:                 evaluateRepsAtLoad,
}

// Valid reports whether the type has an evaluator.
func (t MilestoneType) Valid() bool {
	_, ok := milestoneEvaluators[t]
	return ok
}

func evaluateBestOneRepMax(m Milestone, performances []ExerciseSessionRecord, _ evalWindow) (bool, float64) {
	var best float64
	for _, p := range performances {
		if orm, ok := p.BestOneRepMax(); ok {
			best = max(best, orm)
		}
	}
	best = roundTo(best, 2) //nolint:mnd // two decimals.
	return best > 0 && best >= m.TargetValue, best
}

// evaluateRecentVolume only looks at the single most recent session inside the volume window.
func evaluateRecentVolume(m Milestone, performances []ExerciseSessionRecord, w evalWindow) (bool, float64) {
	for _, p := range performances {
		if p.WorkoutDate.Before(w.volumeSince) {
			continue
		}
		volume := p.TotalVolume()
		return volume >= m.TargetValue, volume
	}
	return false, 0
}

func evaluateRepsAtLoad(m Milestone, performances []ExerciseSessionRecord, w evalWindow) (bool, float64) {
	minLoad := w.repsLoadRatio * m.TargetWeight
	var best int
	for _, p := range performances {
		for _, s := range p.WorkingSets() {
			if s.Weight >= minLoad {
				best = max(best, s.Reps)
			}
		}
	}
	return best > 0 && float64(best) >= m.TargetValue, float64(best)
}
