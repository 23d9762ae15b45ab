package workout

import "github.com/steviebd/swole-tracker/internal/ptr"

type milestoneLadder struct {
	absoluteWeights       []float64
	bodyweightMultipliers []float64
	volumes               []float64
	repsTarget            float64
}

//nolint:gochecknoglobals,mnd // default targets per experience level.
var defaultLadders = map[ExperienceLevel]milestoneLadder{
	ExperienceBeginner: {
		absoluteWeights:       []float64{40, 60, 80},
		bodyweightMultipliers: []float64{0.5, 0.75, 1},
		volumes:               []float64{1000, 2000},
		repsTarget:            10,
	},
	ExperienceIntermediate: {
		absoluteWeights:       []float64{80, 100, 120},
		bodyweightMultipliers: []float64{1, 1.25, 1.5},
		volumes:               []float64{3000, 5000},
		repsTarget:            10,
	},
	ExperienceAdvanced: {
		absoluteWeights:       []float64{140, 160, 180},
		bodyweightMultipliers: []float64{1.5, 1.75, 2},
		volumes:               []float64{6000, 9000},
		repsTarget:            8,
	},
}

// DefaultMilestones generates the system milestones for a master exercise.
//
// Bodyweight multiplier milestones are skipped when the bodyweight is unknown. The reps milestone targets the
// lightest absolute weight of the level.
func DefaultMilestones(
	level ExperienceLevel,
	bodyweightKg *float64,
	userID, masterExerciseID int,
	exerciseName string,
) []Milestone {
	level = ParseExperienceLevel(string(level))
	ladder := defaultLadders[level]

	newMilestone := func(t MilestoneType, target float64) Milestone {
		return Milestone{
			ID:               0,
			UserID:           userID,
			MasterExerciseID: masterExerciseID,
			ExerciseName:     exerciseName,
			Type:             t,
			TargetValue:      target,
			TargetMultiplier: nil,
			TargetWeight:     0,
			ExperienceLevel:  level,
			Active:           true,
			Custom:           false,
		}
	}

	var milestones []Milestone
	for _, w := range ladder.absoluteWeights {
		milestones = append(milestones, newMilestone(MilestoneAbsoluteWeight, w))
	}
	if bodyweightKg != nil && *bodyweightKg > 0 {
		bodyweight := *bodyweightKg
		for _, mult := range ladder.bodyweightMultipliers {
			m := newMilestone(MilestoneBodyweightMultiplier, RoundToIncrement(mult*bodyweight, defaultIncrement))
			m.TargetMultiplier = ptr.Ref(mult)
			milestones = append(milestones, m)
		}
	}
	for _, v := range ladder.volumes {
		milestones = append(milestones, newMilestone(MilestoneVolume, v))
	}
	reps := newMilestone(MilestoneReps, ladder.repsTarget)
	reps.TargetWeight = ladder.absoluteWeights[0]
	milestones = append(milestones, reps)

	return milestones
}
