package workout

import (
	"time"
)

// ExperienceLevel tunes safety caps, training frequency and default milestones.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// ParseExperienceLevel falls back to intermediate for unknown values.
func ParseExperienceLevel(s string) ExperienceLevel {
	switch ExperienceLevel(s) {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced:
		return ExperienceLevel(s)
	default:
		return ExperienceIntermediate
	}
}

// BiometricSnapshot is a parsed wearable reading. Every signal is optional.
type BiometricSnapshot struct {
	RecoveryScore    *float64 `json:"recoveryScore,omitempty"`
	SleepPerformance *float64 `json:"sleepPerformance,omitempty"`
	HRVNowMs         *float64 `json:"hrvNowMs,omitempty"`
	HRVBaselineMs    *float64 `json:"hrvBaselineMs,omitempty"`
	RHRNowBpm        *float64 `json:"rhrNowBpm,omitempty"`
	RHRBaselineBpm   *float64 `json:"rhrBaselineBpm,omitempty"`
	YesterdayStrain  *float64 `json:"yesterdayStrain,omitempty"`
}

// ManualWellness is a self-reported override on a 1-10 scale.
type ManualWellness struct {
	EnergyLevel  float64 `json:"energyLevel"`
	SleepQuality float64 `json:"sleepQuality"`
	Notes        string  `json:"notes,omitempty"`
}

// SetRecord is one logged set.
type SetRecord struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	Warmup bool    `json:"warmup"`
}

// Volume is weight times reps.
func (s SetRecord) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

// OneRepMax returns the Epley estimate. Sets with non-positive weight or reps carry no estimate.
func (s SetRecord) OneRepMax() (float64, bool) {
	if s.Weight <= 0 || s.Reps <= 0 {
		return 0, false
	}
	if s.Reps == 1 {
		return s.Weight, true
	}
	return s.Weight * (1 + float64(s.Reps)/30), true //nolint:mnd // Epley formula.
}

// ExerciseSessionRecord is the performance of one exercise within one workout.
type ExerciseSessionRecord struct {
	SessionID        int         `json:"sessionId"`
	WorkoutDate      time.Time   `json:"workoutDate"`
	ExerciseName     string      `json:"exerciseName"`
	MasterExerciseID int         `json:"masterExerciseId"`
	Sets             []SetRecord `json:"sets"`
}

// WorkingSets returns the non warm-up sets in logged order.
func (e ExerciseSessionRecord) WorkingSets() []SetRecord {
	sets := make([]SetRecord, 0, len(e.Sets))
	for _, s := range e.Sets {
		if !s.Warmup {
			sets = append(sets, s)
		}
	}
	return sets
}

// WarmupSets returns the warm-up sets in logged order.
func (e ExerciseSessionRecord) WarmupSets() []SetRecord {
	var sets []SetRecord
	for _, s := range e.Sets {
		if s.Warmup {
			sets = append(sets, s)
		}
	}
	return sets
}

// BestSet is the highest volume working set. The earliest set wins ties.
func (e ExerciseSessionRecord) BestSet() (SetRecord, bool) {
	var (
		best  SetRecord
		found bool
	)
	for _, s := range e.WorkingSets() {
		if !found || s.Volume() > best.Volume() {
			best = s
			found = true
		}
	}
	return best, found
}

// BestOneRepMax is the highest 1RM estimate among the working sets.
func (e ExerciseSessionRecord) BestOneRepMax() (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, s := range e.WorkingSets() {
		if orm, ok := s.OneRepMax(); ok && (!found || orm > best) {
			best = orm
			found = true
		}
	}
	return best, found
}

// TopWorkingWeight is the heaviest working set weight.
func (e ExerciseSessionRecord) TopWorkingWeight() float64 {
	var top float64
	for _, s := range e.WorkingSets() {
		top = max(top, s.Weight)
	}
	return top
}

// TotalVolume sums weight times reps over the working sets.
func (e ExerciseSessionRecord) TotalVolume() float64 {
	var total float64
	for _, s := range e.WorkingSets() {
		total += s.Volume()
	}
	return total
}

// ProgressionModel selects whether adaptive progression adds load or reps.
type ProgressionModel string

const (
	ProgressionModelReps   ProgressionModel = "reps"
	ProgressionModelWeight ProgressionModel = "weight"
)

// Profile holds the user preferences consumed by the engine.
type Profile struct {
	DisplayName         string           `json:"displayName"`
	ExperienceLevel     ExperienceLevel  `json:"experienceLevel"`
	BodyweightKg        *float64         `json:"bodyweightKg,omitempty"`
	WeightIncrement     float64          `json:"weightIncrement"`
	LinearIncrement     float64          `json:"linearIncrement"`
	PercentageIncrement float64          `json:"percentageIncrement"`
	ProgressionModel    ProgressionModel `json:"progressionModel"`
	WarmupProtocol      *ProtocolOptions `json:"warmupProtocol,omitempty"`
}

// DefaultProfile is used for users who never saved preferences.
func DefaultProfile() Profile {
	return Profile{
		DisplayName:         "",
		ExperienceLevel:     ExperienceIntermediate,
		BodyweightKg:        nil,
		WeightIncrement:     defaultIncrement,
		LinearIncrement:     defaultIncrement,
		PercentageIncrement: defaultPercentageIncrement,
		ProgressionModel:    ProgressionModelReps,
		WarmupProtocol:      nil,
	}
}

// SuggestionType is the kind of progression the suggestion asks for.
type SuggestionType string

const (
	SuggestionWeight SuggestionType = "weight"
	SuggestionReps   SuggestionType = "reps"
)

// Suggestion is a proposed next target for one exercise.
//
// Current and Suggested are weights for weight suggestions and rep counts for reps suggestions. Weight is the load
// to hold for reps suggestions.
type Suggestion struct {
	ExerciseName    string         `json:"exerciseName"`
	Type            SuggestionType `json:"type"`
	Current         float64        `json:"current"`
	Suggested       float64        `json:"suggested"`
	Weight          float64        `json:"weight,omitempty"`
	Rationale       string         `json:"rationale"`
	PlateauDetected bool           `json:"plateauDetected"`
}

// LoadTarget is the previous top working weight scaled by today's overload multiplier.
type LoadTarget struct {
	ExerciseName    string          `json:"exerciseName"`
	PreviousWeight  float64         `json:"previousWeight"`
	Delta           float64         `json:"delta"`
	SuggestedWeight float64         `json:"suggestedWeight"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
}

// MilestoneType selects the evaluator of a milestone.
type MilestoneType string

const (
	MilestoneAbsoluteWeight       MilestoneType = "absolute_weight"
	MilestoneBodyweightMultiplier MilestoneType = "bodyweight_multiplier"
	MilestoneVolume               MilestoneType = "volume"
	MilestoneReps                 MilestoneType = "reps"
)

// Milestone is a strength, volume or rep target.
type Milestone struct {
	ID               int             `json:"id"`
	UserID           int             `json:"userId"`
	MasterExerciseID int             `json:"masterExerciseId"`
	ExerciseName     string          `json:"exerciseName"`
	Type             MilestoneType   `json:"type"`
	TargetValue      float64         `json:"targetValue"`
	TargetMultiplier *float64        `json:"targetMultiplier,omitempty"`
	TargetWeight     float64         `json:"targetWeight,omitempty"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel"`
	Active           bool            `json:"active"`
	Custom           bool            `json:"custom"`
}

// MilestoneAchievement records that a milestone was met. Achievements are never updated.
type MilestoneAchievement struct {
	ID            int       `json:"id"`
	MilestoneID   int       `json:"milestoneId"`
	WorkoutID     int       `json:"workoutId"`
	AchievedAt    time.Time `json:"achievedAt"`
	AchievedValue float64   `json:"achievedValue"`
}

// NotificationType discriminates notifications returned to the caller.
type NotificationType string

const NotificationMilestoneAchieved NotificationType = "milestone_achieved"

// Notification is returned as data. Delivery is up to the caller.
type Notification struct {
	Type          NotificationType `json:"type"`
	ExerciseName  string           `json:"exerciseName"`
	MilestoneType MilestoneType    `json:"milestoneType"`
	AchievedValue float64          `json:"achievedValue"`
	TargetValue   float64          `json:"targetValue"`
	AchievedDate  time.Time        `json:"achievedDate"`
}

// TrajectoryPoint is the projected 1RM after a number of weeks.
type TrajectoryPoint struct {
	Week      int     `json:"week"`
	OneRepMax float64 `json:"oneRepMax"`
}

// PRForecast is the live forecast for one master exercise.
type PRForecast struct {
	UserID             int               `json:"userId"`
	MasterExerciseID   int               `json:"masterExerciseId"`
	ExerciseName       string            `json:"exerciseName"`
	CurrentPR          float64           `json:"currentPR"`
	ForecastedWeight   float64           `json:"forecastedWeight"`
	Velocity           float64           `json:"velocity"`
	SessionsToNextPR   int               `json:"sessionsToNextPR"`
	EstimatedWeeksLow  int               `json:"estimatedWeeksLow"`
	EstimatedWeeksHigh int               `json:"estimatedWeeksHigh"`
	Confidence         float64           `json:"confidence"`
	ConfidencePercent  int               `json:"confidencePercent"`
	Trajectory         []TrajectoryPoint `json:"trajectory"`
	CalculatedAt       time.Time         `json:"calculatedAt"`
}

// ForecastResult wraps forecasts. Insufficient data yields zero forecasts, never an error.
type ForecastResult struct {
	Forecasts  []PRForecast `json:"forecasts"`
	TotalCount int          `json:"totalCount"`
}

func newForecastResult(forecasts []PRForecast) ForecastResult {
	if forecasts == nil {
		forecasts = []PRForecast{}
	}
	return ForecastResult{Forecasts: forecasts, TotalCount: len(forecasts)}
}

// WarmupConfidence tiers how much history backs a warm-up plan.
type WarmupConfidence string

const (
	WarmupConfidenceLow    WarmupConfidence = "low"
	WarmupConfidenceMedium WarmupConfidence = "medium"
	WarmupConfidenceHigh   WarmupConfidence = "high"
)

// WarmupSource tells where a warm-up plan came from.
type WarmupSource string

const (
	WarmupSourceHistory  WarmupSource = "history"
	WarmupSourceProtocol WarmupSource = "protocol"
	WarmupSourceDefault  WarmupSource = "default"
)

// WarmupSet is one planned warm-up set.
type WarmupSet struct {
	SetNumber       int     `json:"setNumber"`
	Weight          float64 `json:"weight"`
	Reps            int     `json:"reps"`
	PercentageOfTop float64 `json:"percentageOfTop"`
}

// WarmupPattern is a warm-up plan computed on demand.
type WarmupPattern struct {
	Confidence   WarmupConfidence `json:"confidence"`
	Sets         []WarmupSet      `json:"sets"`
	Source       WarmupSource     `json:"source"`
	SessionCount int              `json:"sessionCount"`
}
