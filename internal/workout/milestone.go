package workout

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// milestoneStore is the data access needed by [Evaluator]. Each list method is a single bulk query.
type milestoneStore interface {
	ListActiveMilestones(ctx context.Context, userID int, masterIDs []int) ([]Milestone, error)
	ListPerformancesSince(
		ctx context.Context, userID int, masterIDs []int, since time.Time) ([]ExerciseSessionRecord, error)
	ListAchievementsSince(ctx context.Context, milestoneIDs []int, since time.Time) ([]MilestoneAchievement, error)
	CreateAchievement(ctx context.Context, achievement MilestoneAchievement) (int, error)
}

// EvaluatorConfig holds the windows of a milestone evaluation.
type EvaluatorConfig struct {
	// DedupWindow suppresses a second achievement of the same milestone.
	DedupWindow time.Duration
	// PerformanceWindow bounds the history that is loaded.
	PerformanceWindow time.Duration
	// VolumeWindow bounds the session considered by volume milestones.
	VolumeWindow time.Duration
	// RepsLoadRatio is the share of the target weight a set needs to count for reps milestones.
	RepsLoadRatio float64
}

// DefaultEvaluatorConfig returns 24h dedup, 30 days of history, a 7 day volume window and a 90% load ratio.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		DedupWindow:       24 * time.Hour,      //nolint:mnd // one day.
		PerformanceWindow: 30 * 24 * time.Hour, //nolint:mnd // 30 days.
		VolumeWindow:      7 * 24 * time.Hour,  //nolint:mnd // 7 days.
		RepsLoadRatio:     0.9,                 //nolint:mnd // 90% of target weight.
	}
}

func (c EvaluatorConfig) withDefaults() EvaluatorConfig {
	d := DefaultEvaluatorConfig()
	if c.DedupWindow <= 0 {
		c.DedupWindow = d.DedupWindow
	}
	if c.PerformanceWindow <= 0 {
		c.PerformanceWindow = d.PerformanceWindow
	}
	if c.VolumeWindow <= 0 {
		c.VolumeWindow = d.VolumeWindow
	}
	if c.RepsLoadRatio <= 0 {
		c.RepsLoadRatio = d.RepsLoadRatio
	}
	return c
}

// Evaluator detects newly achieved milestones after a workout.
type Evaluator struct {
	store  milestoneStore
	logger *slog.Logger
	cfg    EvaluatorConfig
	now    func() time.Time
}

// NewEvaluator creates an evaluator backed by store.
func NewEvaluator(store milestoneStore, logger *slog.Logger, cfg EvaluatorConfig) *Evaluator {
	return &Evaluator{
		store:  store,
		logger: logger,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// Evaluate loads milestones, recent performances and recent achievements for the master exercises in three bulk
// reads and records every milestone that is met and was not already achieved inside the dedup window.
//
// Concurrent evaluations may record a duplicate achievement. No lock is taken.
//
// When recording fails the notifications of the achievements stored so far are returned together with the error.
func (e *Evaluator) Evaluate(ctx context.Context, userID, workoutID int, masterIDs []int) ([]Notification, error) {
	masterIDs = distinct(masterIDs)
	if len(masterIDs) == 0 {
		return nil, nil
	}
	now := e.now()

	var (
		milestones   []Milestone
		performances []ExerciseSessionRecord
		achievements []MilestoneAchievement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if milestones, err = e.store.ListActiveMilestones(gctx, userID, masterIDs); err != nil {
			return fmt.Errorf("list active milestones: %w", err)
		}
		if len(milestones) == 0 {
			return nil
		}
		ids := make([]int, 0, len(milestones))
		for _, m := range milestones {
			ids = append(ids, m.ID)
		}
		if achievements, err = e.store.ListAchievementsSince(gctx, ids, now.Add(-e.cfg.DedupWindow)); err != nil {
			return fmt.Errorf("list recent achievements: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		since := now.Add(-e.cfg.PerformanceWindow)
		if performances, err = e.store.ListPerformancesSince(gctx, userID, masterIDs, since); err != nil {
			return fmt.Errorf("list performances: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	milestonesByExercise := groupBy(milestones, func(m Milestone) int { return m.MasterExerciseID })
	performancesByExercise := groupBy(performances, func(p ExerciseSessionRecord) int { return p.MasterExerciseID })
	achieved := make(map[int]struct{}, len(achievements))
	for _, a := range achievements {
		achieved[a.MilestoneID] = struct{}{}
	}

	window := evalWindow{
		volumeSince:   now.Add(-e.cfg.VolumeWindow),
		repsLoadRatio: e.cfg.RepsLoadRatio,
	}

	var notifications []Notification
	for _, masterID := range masterIDs {
		exercisePerformances := performancesByExercise[masterID]
		for _, m := range milestonesByExercise[masterID] {
			if _, ok := achieved[m.ID]; ok {
				continue
			}

			if !m.Type.Valid() {
				e.logger.LogAttrs(ctx, slog.LevelWarn, "unknown milestone type",
					slog.Int("milestone_id", m.ID), slog.String("type", string(m.Type)))
				continue
			}

			met, value := milestoneEvaluators[m.Type](m, exercisePerformances, window)
			if !met {
				continue
			}

			if _, err := e.store.CreateAchievement(ctx, MilestoneAchievement{
				ID:            0,
				MilestoneID:   m.ID,
				WorkoutID:     workoutID,
				AchievedAt:    now,
				AchievedValue: value,
			}); err != nil {
				return notifications, fmt.Errorf("create achievement for milestone %d: %w", m.ID, err)
			}
			achieved[m.ID] = struct{}{}

			e.logger.LogAttrs(ctx, slog.LevelInfo, "milestone achieved",
				slog.Int("milestone_id", m.ID),
				slog.String("type", string(m.Type)),
				slog.Float64("achieved_value", value),
				slog.Float64("target_value", m.TargetValue))

			notifications = append(notifications, Notification{
				Type:          NotificationMilestoneAchieved,
				ExerciseName:  exerciseName(m, exercisePerformances),
				MilestoneType: m.Type,
				AchievedValue: value,
				TargetValue:   m.TargetValue,
				AchievedDate:  now,
			})
		}
	}

	return notifications, nil
}

func exerciseName(m Milestone, performances []ExerciseSessionRecord) string {
	if m.ExerciseName != "" {
		return m.ExerciseName
	}
	if len(performances) > 0 {
		return performances[0].ExerciseName
	}
	return ""
}

// groupBy preserves the input order within each group.
func groupBy[T any](items []T, key func(T) int) map[int][]T {
	groups := make(map[int][]T)
	for _, item := range items {
		k := key(item)
		groups[k] = append(groups[k], item)
	}
	return groups
}

func distinct(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
