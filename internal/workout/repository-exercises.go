package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
)

// MasterExercise is the canonical identity that exercise names link to.
type MasterExercise struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// sqliteExerciseRepository resolves exercise names to master exercises.
type sqliteExerciseRepository struct {
	baseRepository
}

// ResolveMaster returns the master exercise that the named exercise links to.
func (r *sqliteExerciseRepository) ResolveMaster(ctx context.Context, exerciseName string) (MasterExercise, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var master MasterExercise
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT m.id, m.name
		FROM exercises e
		JOIN exercise_links l ON l.exercise_id = e.id
		JOIN master_exercises m ON m.id = l.master_exercise_id
		WHERE e.user_id = ? AND e.name = ?`, userID, exerciseName).Scan(&master.ID, &master.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return MasterExercise{}, ErrNotFound
	}
	if err != nil {
		return MasterExercise{}, fmt.Errorf("query master exercise: %w", err)
	}
	return master, nil
}

// GetMaster retrieves a master exercise of the authenticated user by ID.
func (r *sqliteExerciseRepository) GetMaster(ctx context.Context, id int) (MasterExercise, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var master MasterExercise
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, name FROM master_exercises WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&master.ID, &master.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return MasterExercise{}, ErrNotFound
	}
	if err != nil {
		return MasterExercise{}, fmt.Errorf("query master exercise %d: %w", id, err)
	}
	return master, nil
}

// ListMasters lists the master exercises of the authenticated user.
func (r *sqliteExerciseRepository) ListMasters(ctx context.Context) (_ []MasterExercise, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, name FROM master_exercises WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query master exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var masters []MasterExercise
	for rows.Next() {
		var m MasterExercise
		if err = rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan master exercise: %w", err)
		}
		masters = append(masters, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return masters, nil
}

// Link points the named exercise at another master exercise so that history is tracked across renames.
func (r *sqliteExerciseRepository) Link(ctx context.Context, exerciseName string, masterID int) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	if _, err := r.GetMaster(ctx, masterID); err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		exerciseID, err := upsertExercise(ctx, tx, userID, exerciseName)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO exercise_links (exercise_id, master_exercise_id) VALUES (?, ?)
			ON CONFLICT (exercise_id) DO UPDATE SET master_exercise_id = excluded.master_exercise_id`,
			exerciseID, masterID); err != nil {
			return fmt.Errorf("link exercise: %w", err)
		}
		return nil
	})
}

func upsertExercise(ctx context.Context, tx *sql.Tx, userID int, name string) (int, error) {
	var id int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO exercises (user_id, name) VALUES (?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET name = excluded.name
		RETURNING id`, userID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert exercise %q: %w", name, err)
	}
	return id, nil
}

// ensureMasterLink returns the master exercise of exerciseID, creating a master with the same name on first use.
func ensureMasterLink(ctx context.Context, tx *sql.Tx, userID, exerciseID int, name string) (int, error) {
	var masterID int
	err := tx.QueryRowContext(ctx, `
		SELECT master_exercise_id FROM exercise_links WHERE exercise_id = ?`, exerciseID).Scan(&masterID)
	if err == nil {
		return masterID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("query exercise link: %w", err)
	}

	if err = tx.QueryRowContext(ctx, `
		INSERT INTO master_exercises (user_id, name) VALUES (?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET name = excluded.name
		RETURNING id`, userID, name).Scan(&masterID); err != nil {
		return 0, fmt.Errorf("upsert master exercise %q: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO exercise_links (exercise_id, master_exercise_id) VALUES (?, ?)`, exerciseID, masterID); err != nil {
		return 0, fmt.Errorf("insert exercise link: %w", err)
	}
	return masterID, nil
}
