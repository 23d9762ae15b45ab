package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
)

// sqliteMilestoneRepository implements milestoneStore.
type sqliteMilestoneRepository struct {
	baseRepository
	workouts *sqliteWorkoutRepository
}

// ListActiveMilestones loads the active milestones of the user for all given master exercises in one query.
func (r *sqliteMilestoneRepository) ListActiveMilestones(
	ctx context.Context,
	userID int,
	masterIDs []int,
) (_ []Milestone, err error) {
	if len(masterIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(masterIDs)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.master_exercise_id, me.name, m.type, m.target_value, m.target_multiplier,
		       m.target_weight, m.experience_level, m.is_active, m.is_custom
		FROM milestones m
		JOIN master_exercises me ON me.id = m.master_exercise_id
		WHERE m.user_id = ? AND m.is_active = 1 AND m.master_exercise_id IN `+in+`
		ORDER BY m.master_exercise_id, m.id`, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var milestones []Milestone
	for rows.Next() {
		var (
			m          Milestone
			multiplier sql.NullFloat64
		)
		if err = rows.Scan(&m.ID, &m.UserID, &m.MasterExerciseID, &m.ExerciseName, &m.Type, &m.TargetValue,
			&multiplier, &m.TargetWeight, &m.ExperienceLevel, &m.Active, &m.Custom); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		if multiplier.Valid {
			m.TargetMultiplier = &multiplier.Float64
		}
		milestones = append(milestones, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return milestones, nil
}

// ListPerformancesSince delegates to the workout history query.
func (r *sqliteMilestoneRepository) ListPerformancesSince(
	ctx context.Context,
	userID int,
	masterIDs []int,
	since time.Time,
) ([]ExerciseSessionRecord, error) {
	return r.workouts.ListPerformancesSince(ctx, userID, masterIDs, since)
}

// ListAchievementsSince loads the achievements of the milestones recorded on or after since in one query.
func (r *sqliteMilestoneRepository) ListAchievementsSince(
	ctx context.Context,
	milestoneIDs []int,
	since time.Time,
) (_ []MilestoneAchievement, err error) {
	if len(milestoneIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(milestoneIDs)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, milestone_id, COALESCE(workout_id, 0), achieved_at, achieved_value
		FROM milestone_achievements
		WHERE achieved_at >= ? AND milestone_id IN `+in+`
		ORDER BY achieved_at DESC`, append([]any{formatTimestamp(since)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var achievements []MilestoneAchievement
	for rows.Next() {
		var (
			a          MilestoneAchievement
			achievedAt string
		)
		if err = rows.Scan(&a.ID, &a.MilestoneID, &a.WorkoutID, &achievedAt, &a.AchievedValue); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		if a.AchievedAt, err = parseTimestamp(achievedAt); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return achievements, nil
}

// CreateAchievement appends an achievement row.
func (r *sqliteMilestoneRepository) CreateAchievement(ctx context.Context, a MilestoneAchievement) (int, error) {
	workoutID := sql.NullInt64{Int64: int64(a.WorkoutID), Valid: a.WorkoutID > 0}

	var id int
	err := r.db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO milestone_achievements (milestone_id, workout_id, achieved_at, achieved_value)
		VALUES (?, ?, ?, ?)
		RETURNING id`, a.MilestoneID, workoutID, formatTimestamp(a.AchievedAt), a.AchievedValue).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert achievement: %w", err)
	}
	return id, nil
}

// CountForMaster counts the milestones of the authenticated user for a master exercise.
func (r *sqliteMilestoneRepository) CountForMaster(ctx context.Context, masterID int) (int, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var count int
	if err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM milestones WHERE user_id = ? AND master_exercise_id = ?`, userID, masterID).
		Scan(&count); err != nil {
		return 0, fmt.Errorf("count milestones: %w", err)
	}
	return count, nil
}

// CreateMilestones inserts milestones in one transaction.
func (r *sqliteMilestoneRepository) CreateMilestones(ctx context.Context, milestones []Milestone) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, m := range milestones {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO milestones (user_id, master_exercise_id, type, target_value, target_multiplier,
				                        target_weight, experience_level, is_active, is_custom)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.UserID, m.MasterExerciseID, m.Type, m.TargetValue, m.TargetMultiplier, m.TargetWeight,
				m.ExperienceLevel, m.Active, m.Custom); err != nil {
				return fmt.Errorf("insert %s milestone: %w", m.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create milestones: %w", err)
	}
	return nil
}
