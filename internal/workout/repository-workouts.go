package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
)

// WorkoutLog is a completed workout as submitted by the client.
type WorkoutLog struct {
	Date        time.Time        `json:"date"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Exercises   []LoggedExercise `json:"exercises"`
}

// LoggedExercise is one exercise of a [WorkoutLog] with its sets in performed order.
type LoggedExercise struct {
	Name string      `json:"name"`
	Sets []SetRecord `json:"sets"`
}

// SavedWorkout is the result of persisting a [WorkoutLog].
type SavedWorkout struct {
	ID        int   `json:"id"`
	MasterIDs []int `json:"masterExerciseIds"`
}

// sqliteWorkoutRepository stores workouts and reads exercise history.
type sqliteWorkoutRepository struct {
	baseRepository
}

// Create saves the workout of the authenticated user in one transaction and returns the distinct master exercises
// it touched.
func (r *sqliteWorkoutRepository) Create(ctx context.Context, log WorkoutLog) (SavedWorkout, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	saved := SavedWorkout{ID: 0, MasterIDs: []int{}}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO workouts (user_id, workout_date, completed_at) VALUES (?, ?, ?)
			RETURNING id`, userID, formatDate(log.Date), formatNullTimestamp(log.CompletedAt)).Scan(&saved.ID); err != nil {
			return fmt.Errorf("insert workout: %w", err)
		}

		for position, exercise := range log.Exercises {
			exerciseID, err := upsertExercise(ctx, tx, userID, exercise.Name)
			if err != nil {
				return err
			}
			masterID, err := ensureMasterLink(ctx, tx, userID, exerciseID, exercise.Name)
			if err != nil {
				return err
			}
			if !slices.Contains(saved.MasterIDs, masterID) {
				saved.MasterIDs = append(saved.MasterIDs, masterID)
			}

			var sessionExerciseID int
			if err = tx.QueryRowContext(ctx, `
				INSERT INTO session_exercises (workout_id, exercise_id, position) VALUES (?, ?, ?)
				RETURNING id`, saved.ID, exerciseID, position).Scan(&sessionExerciseID); err != nil {
				return fmt.Errorf("insert session exercise %q: %w", exercise.Name, err)
			}

			for i, set := range exercise.Sets {
				if _, err = tx.ExecContext(ctx, `
					INSERT INTO exercise_sets (session_exercise_id, set_number, weight, reps, is_warmup)
					VALUES (?, ?, ?, ?, ?)`, sessionExerciseID, i+1, set.Weight, set.Reps, set.Warmup); err != nil {
					return fmt.Errorf("insert set %d of %q: %w", i+1, exercise.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return SavedWorkout{}, fmt.Errorf("create workout: %w", err)
	}

	return saved, nil
}

// Owned returns ErrNotFound unless the workout exists and belongs to the authenticated user.
func (r *sqliteWorkoutRepository) Owned(ctx context.Context, workoutID int) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var one int
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT 1 FROM workouts WHERE id = ? AND user_id = ?`, workoutID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query workout %d: %w", workoutID, err)
	}
	return nil
}

// ListRecent returns the most recent sessions of a master exercise, most recent first.
func (r *sqliteWorkoutRepository) ListRecent(
	ctx context.Context,
	masterID int,
	limit int,
) ([]ExerciseSessionRecord, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	records, err := r.querySessionRecords(ctx, `
		WITH recent AS (SELECT se.id
		                FROM session_exercises se
		                         JOIN workouts w ON w.id = se.workout_id
		                         JOIN exercise_links l ON l.exercise_id = se.exercise_id
		                WHERE w.user_id = ? AND l.master_exercise_id = ?
		                ORDER BY w.workout_date DESC, w.id DESC, se.position
		                LIMIT ?)
		`+sessionRecordSelect+`
		WHERE se.id IN (SELECT id FROM recent)
		`+sessionRecordOrder, userID, masterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions of master exercise %d: %w", masterID, err)
	}
	return records, nil
}

// ListPerformancesSince returns every session of the master exercises on or after since in one query, most recent
// first.
func (r *sqliteWorkoutRepository) ListPerformancesSince(
	ctx context.Context,
	userID int,
	masterIDs []int,
	since time.Time,
) ([]ExerciseSessionRecord, error) {
	if len(masterIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(masterIDs)

	records, err := r.querySessionRecords(ctx, sessionRecordSelect+`
		WHERE w.user_id = ? AND w.workout_date >= ? AND l.master_exercise_id IN `+in+`
		`+sessionRecordOrder, append([]any{userID, formatDate(since)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list performances: %w", err)
	}
	return records, nil
}

const sessionRecordSelect = `
		SELECT w.id, w.workout_date, e.name, l.master_exercise_id, se.id, s.weight, s.reps, s.is_warmup
		FROM session_exercises se
		         JOIN workouts w ON w.id = se.workout_id
		         JOIN exercises e ON e.id = se.exercise_id
		         JOIN exercise_links l ON l.exercise_id = e.id
		         JOIN exercise_sets s ON s.session_exercise_id = se.id`

const sessionRecordOrder = `ORDER BY w.workout_date DESC, w.id DESC, se.position, s.set_number`

// querySessionRecords folds the set rows of sessionRecordSelect into one record per session exercise.
func (r *sqliteWorkoutRepository) querySessionRecords(
	ctx context.Context,
	query string,
	args ...any,
) (_ []ExerciseSessionRecord, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var (
		records       []ExerciseSessionRecord
		lastSessionEx = -1
	)
	for rows.Next() {
		var (
			record            ExerciseSessionRecord
			dateStr           string
			sessionExerciseID int
			set               SetRecord
		)
		if err = rows.Scan(&record.SessionID, &dateStr, &record.ExerciseName, &record.MasterExerciseID,
			&sessionExerciseID, &set.Weight, &set.Reps, &set.Warmup); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}

		if sessionExerciseID != lastSessionEx {
			if record.WorkoutDate, err = parseDate(dateStr); err != nil {
				return nil, err
			}
			records = append(records, record)
			lastSessionEx = sessionExerciseID
		}
		last := &records[len(records)-1]
		last.Sets = append(last.Sets, set)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}
