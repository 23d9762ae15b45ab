package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
	"github.com/steviebd/swole-tracker/internal/metrics"
	"github.com/steviebd/swole-tracker/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

const (
	progressionSessions = 2
	forecastConcurrency = 4
)

// Config tunes the engine.
type Config struct {
	// WeightIncrement is used when the profile has no increment of its own.
	WeightIncrement  float64
	PlateauThreshold float64
	Evaluator        EvaluatorConfig
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		WeightIncrement:  defaultIncrement,
		PlateauThreshold: defaultPlateauThreshold,
		Evaluator:        DefaultEvaluatorConfig(),
	}
}

// Service wires the analytics engine to storage for the authenticated user.
type Service struct {
	repo      *repository
	logger    *slog.Logger
	cfg       Config
	evaluator *Evaluator
	metrics   *metrics.Manager
	now       func() time.Time
}

// NewService creates a new workout service.
func NewService(db *sqlite.Database, logger *slog.Logger, cfg Config, m *metrics.Manager) *Service {
	factory := newRepositoryFactory(db, logger)
	repo := factory.newRepository()
	return &Service{
		repo:      repo,
		logger:    logger,
		cfg:       cfg,
		evaluator: NewEvaluator(repo.milestones, logger, cfg.Evaluator),
		metrics:   m,
		now:       time.Now,
	}
}

// GetProfile retrieves the preferences of the authenticated user.
func (s *Service) GetProfile(ctx context.Context) (Profile, error) {
	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if profile.WeightIncrement <= 0 {
		profile.WeightIncrement = s.cfg.WeightIncrement
	}
	return profile, nil
}

// SaveProfile saves the preferences of the authenticated user.
func (s *Service) SaveProfile(ctx context.Context, profile Profile) error {
	profile.ExperienceLevel = ParseExperienceLevel(string(profile.ExperienceLevel))
	if profile.ProgressionModel != ProgressionModelWeight {
		profile.ProgressionModel = ProgressionModelReps
	}
	if profile.WeightIncrement <= 0 {
		profile.WeightIncrement = s.cfg.WeightIncrement
	}
	if profile.LinearIncrement <= 0 {
		profile.LinearIncrement = defaultIncrement
	}
	if profile.PercentageIncrement <= 0 {
		profile.PercentageIncrement = defaultPercentageIncrement
	}
	if err := s.repo.profiles.Set(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ReadinessReport is a readiness score together with the overload multiplier it implies for the user.
type ReadinessReport struct {
	Readiness
	Delta           float64         `json:"delta"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
}

// ScoreReadiness scores the snapshot and derives the overload multiplier for the user's experience level.
func (s *Service) ScoreReadiness(
	ctx context.Context,
	snapshot BiometricSnapshot,
	wellness *ManualWellness,
) (ReadinessReport, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return ReadinessReport{}, err
	}

	readiness := ScoreReadiness(snapshot, wellness)
	s.metrics.CounterReadinessScores.Inc()
	s.metrics.HistReadiness.Observe(readiness.Rho)

	return ReadinessReport{
		Readiness:       readiness,
		Delta:           OverloadMultiplier(readiness.Rho, profile.ExperienceLevel),
		ExperienceLevel: profile.ExperienceLevel,
	}, nil
}

// SuggestProgression suggests the next target for the named exercise from its two most recent sessions.
func (s *Service) SuggestProgression(
	ctx context.Context,
	exerciseName string,
	rho float64,
	strategy Strategy,
) ([]Suggestion, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.history(ctx, exerciseName, progressionSessions)
	if err != nil {
		return nil, err
	}

	opts := ProgressionOptionsFromProfile(profile, strategy, s.cfg.PlateauThreshold)
	suggestions := SuggestProgression(exerciseName, history, clip(rho, 0, 1), opts)
	for _, suggestion := range suggestions {
		s.metrics.CounterSuggestions.
			WithLabelValues(string(suggestion.Type), strconv.FormatBool(suggestion.PlateauDetected)).Inc()
	}
	return suggestions, nil
}

// SuggestLoad scales the top working weight of the most recent session by the overload multiplier of rho. The
// second return value is false when the exercise has no working sets yet.
func (s *Service) SuggestLoad(ctx context.Context, exerciseName string, rho float64) (LoadTarget, bool, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return LoadTarget{}, false, err
	}

	history, err := s.history(ctx, exerciseName, 1)
	if err != nil {
		return LoadTarget{}, false, err
	}
	if len(history) == 0 || history[0].TopWorkingWeight() <= 0 {
		return LoadTarget{}, false, nil //nolint:exhaustruct // no load without history.
	}

	rho = clip(rho, 0, 1)
	previous := history[0].TopWorkingWeight()
	return LoadTarget{
		ExerciseName:    exerciseName,
		PreviousWeight:  previous,
		Delta:           OverloadMultiplier(rho, profile.ExperienceLevel),
		SuggestedWeight: SuggestLoad(previous, rho, profile.ExperienceLevel, profile.WeightIncrement),
		ExperienceLevel: profile.ExperienceLevel,
	}, true, nil
}

// history returns the most recent sessions of the master exercise the name links to. Unknown names have no history.
func (s *Service) history(ctx context.Context, exerciseName string, limit int) ([]ExerciseSessionRecord, error) {
	master, err := s.repo.exercises.ResolveMaster(ctx, exerciseName)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve master exercise %q: %w", exerciseName, err)
	}

	history, err := s.repo.workouts.ListRecent(ctx, master.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history of %q: %w", exerciseName, err)
	}
	return history, nil
}

// RecomputeForecasts replaces the stored forecast of every master exercise. Exercises with insufficient data lose
// their stale forecast and are left out of the result.
func (s *Service) RecomputeForecasts(ctx context.Context, masterIDs []int) (ForecastResult, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return ForecastResult{}, err
	}
	userID := contexthelpers.AuthenticatedUserID(ctx)
	masterIDs = distinct(masterIDs)
	now := s.now()

	histories := make([][]ExerciseSessionRecord, len(masterIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(forecastConcurrency)
	for i, masterID := range masterIDs {
		g.Go(func() error {
			history, listErr := s.repo.workouts.ListRecent(gctx, masterID, maxForecastSessions)
			if listErr != nil {
				return fmt.Errorf("list history of master exercise %d: %w", masterID, listErr)
			}
			histories[i] = history
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return ForecastResult{}, err
	}

	var forecasts []PRForecast
	for i, masterID := range masterIDs {
		forecast, ok := ForecastPR(histories[i], profile.ExperienceLevel, now)
		if !ok {
			s.metrics.CounterForecasts.WithLabelValues("insufficient_data").Inc()
			if err = s.repo.forecasts.Replace(ctx, masterID, nil); err != nil {
				return ForecastResult{}, err
			}
			continue
		}

		forecast.UserID = userID
		forecast.MasterExerciseID = masterID
		if err = s.repo.forecasts.Replace(ctx, masterID, &forecast); err != nil {
			return ForecastResult{}, err
		}
		s.metrics.CounterForecasts.WithLabelValues("forecast").Inc()
		forecasts = append(forecasts, forecast)
	}

	return newForecastResult(forecasts), nil
}

// ListForecasts returns the stored forecasts of the authenticated user.
func (s *Service) ListForecasts(ctx context.Context) (ForecastResult, error) {
	forecasts, err := s.repo.forecasts.List(ctx)
	if err != nil {
		return ForecastResult{}, fmt.Errorf("list forecasts: %w", err)
	}
	return newForecastResult(forecasts), nil
}

// EvaluateMilestones records the milestones achieved by the workout for the given master exercises. Workouts of
// other users are reported as [ErrNotFound].
func (s *Service) EvaluateMilestones(ctx context.Context, workoutID int, masterIDs []int) ([]Notification, error) {
	if err := s.repo.workouts.Owned(ctx, workoutID); err != nil {
		return nil, fmt.Errorf("evaluate milestones of workout %d: %w", workoutID, err)
	}
	return s.evaluateMilestones(ctx, workoutID, masterIDs)
}

func (s *Service) evaluateMilestones(ctx context.Context, workoutID int, masterIDs []int) ([]Notification, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	start := time.Now()
	notifications, err := s.evaluator.Evaluate(ctx, userID, workoutID, masterIDs)
	s.metrics.HistEvaluationDuration.Observe(time.Since(start).Seconds())
	for _, n := range notifications {
		s.metrics.CounterAchievements.WithLabelValues(string(n.MilestoneType)).Inc()
	}
	if err != nil {
		return notifications, fmt.Errorf("evaluate milestones of workout %d: %w", workoutID, err)
	}
	if notifications == nil {
		notifications = []Notification{}
	}
	return notifications, nil
}

// WorkoutOutcome is everything derived from a freshly logged workout.
type WorkoutOutcome struct {
	Workout       SavedWorkout   `json:"workout"`
	Notifications []Notification `json:"notifications"`
	Forecasts     ForecastResult `json:"forecasts"`
}

// LogWorkout saves a completed workout, evaluates the milestones of the touched exercises and refreshes their PR
// forecasts.
func (s *Service) LogWorkout(ctx context.Context, log WorkoutLog) (WorkoutOutcome, error) {
	if log.Date.IsZero() {
		log.Date = s.now()
	}

	saved, err := s.repo.workouts.Create(ctx, log)
	if err != nil {
		return WorkoutOutcome{}, err
	}

	notifications, err := s.evaluateMilestones(ctx, saved.ID, saved.MasterIDs)
	if err != nil {
		return WorkoutOutcome{}, err
	}

	forecasts, err := s.RecomputeForecasts(ctx, saved.MasterIDs)
	if err != nil {
		return WorkoutOutcome{}, err
	}

	return WorkoutOutcome{
		Workout:       saved,
		Notifications: notifications,
		Forecasts:     forecasts,
	}, nil
}

// SeedDefaultMilestones creates the default milestones of a master exercise that has none yet and returns them.
func (s *Service) SeedDefaultMilestones(ctx context.Context, masterID int) ([]Milestone, error) {
	master, err := s.repo.exercises.GetMaster(ctx, masterID)
	if err != nil {
		return nil, fmt.Errorf("get master exercise: %w", err)
	}

	count, err := s.repo.milestones.CountForMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return []Milestone{}, nil
	}

	profile, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	userID := contexthelpers.AuthenticatedUserID(ctx)
	milestones := DefaultMilestones(profile.ExperienceLevel, profile.BodyweightKg, userID, master.ID, master.Name)
	if err = s.repo.milestones.CreateMilestones(ctx, milestones); err != nil {
		return nil, err
	}
	return milestones, nil
}

// PlanWarmup infers a warm-up for the named exercise from history and falls back to the saved protocol of the user
// or the built-in default ladder.
func (s *Service) PlanWarmup(
	ctx context.Context,
	exerciseName string,
	targetWeight float64,
	workingReps int,
) (WarmupPattern, error) {
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return WarmupPattern{}, err
	}

	history, err := s.history(ctx, exerciseName, defaultLookbackSessions)
	if err != nil {
		return WarmupPattern{}, err
	}

	pattern := DetectWarmupPattern(history, targetWeight, DetectOptions{
		MinSessions:      defaultMinSessions,
		LookbackSessions: defaultLookbackSessions,
		Increment:        profile.WeightIncrement,
	})
	if len(pattern.Sets) > 0 {
		return pattern, nil
	}

	if profile.WarmupProtocol != nil {
		pattern = GenerateDefaultWarmupProtocol(targetWeight, workingReps, *profile.WarmupProtocol,
			profile.WeightIncrement)
		pattern.Source = WarmupSourceProtocol
		return pattern, nil
	}
	return GenerateDefaultWarmupProtocol(targetWeight, workingReps, DefaultProtocolOptions(),
		profile.WeightIncrement), nil
}

// LinkExercise tracks the named exercise under an existing master exercise.
func (s *Service) LinkExercise(ctx context.Context, exerciseName string, masterID int) error {
	if err := s.repo.exercises.Link(ctx, exerciseName, masterID); err != nil {
		return fmt.Errorf("link %q to master exercise %d: %w", exerciseName, masterID, err)
	}
	return nil
}

// ListMasterExercises lists the master exercises of the authenticated user.
func (s *Service) ListMasterExercises(ctx context.Context) ([]MasterExercise, error) {
	masters, err := s.repo.exercises.ListMasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list master exercises: %w", err)
	}
	if masters == nil {
		masters = []MasterExercise{}
	}
	return masters, nil
}
