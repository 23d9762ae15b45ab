package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
)

// sqliteForecastRepository keeps one live forecast per user and master exercise.
type sqliteForecastRepository struct {
	baseRepository
}

// Replace deletes the stored forecast of the master exercise and inserts forecast in the same transaction.
// A nil forecast only deletes.
func (r *sqliteForecastRepository) Replace(ctx context.Context, masterID int, forecast *PRForecast) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM pr_forecasts WHERE user_id = ? AND master_exercise_id = ?`, userID, masterID); err != nil {
			return fmt.Errorf("delete forecast: %w", err)
		}
		if forecast == nil {
			return nil
		}

		trajectory, err := json.Marshal(forecast.Trajectory)
		if err != nil {
			return fmt.Errorf("marshal trajectory: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO pr_forecasts (user_id, master_exercise_id, current_pr, forecasted_weight, velocity,
			                          sessions_to_next_pr, estimated_weeks_low, estimated_weeks_high, confidence,
			                          confidence_percent, trajectory, calculated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, masterID, forecast.CurrentPR, forecast.ForecastedWeight, forecast.Velocity,
			forecast.SessionsToNextPR, forecast.EstimatedWeeksLow, forecast.EstimatedWeeksHigh, forecast.Confidence,
			forecast.ConfidencePercent, string(trajectory), formatTimestamp(forecast.CalculatedAt)); err != nil {
			return fmt.Errorf("insert forecast: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace forecast of master exercise %d: %w", masterID, err)
	}
	return nil
}

// List returns the stored forecasts of the authenticated user ordered by exercise name.
func (r *sqliteForecastRepository) List(ctx context.Context) (_ []PRForecast, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT f.user_id, f.master_exercise_id, m.name, f.current_pr, f.forecasted_weight, f.velocity,
		       f.sessions_to_next_pr, f.estimated_weeks_low, f.estimated_weeks_high, f.confidence,
		       f.confidence_percent, f.trajectory, f.calculated_at
		FROM pr_forecasts f
		JOIN master_exercises m ON m.id = f.master_exercise_id
		WHERE f.user_id = ?
		ORDER BY m.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var forecasts []PRForecast
	for rows.Next() {
		var (
			f            PRForecast
			trajectory   string
			calculatedAt string
		)
		if err = rows.Scan(&f.UserID, &f.MasterExerciseID, &f.ExerciseName, &f.CurrentPR, &f.ForecastedWeight,
			&f.Velocity, &f.SessionsToNextPR, &f.EstimatedWeeksLow, &f.EstimatedWeeksHigh, &f.Confidence,
			&f.ConfidencePercent, &trajectory, &calculatedAt); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		if err = json.Unmarshal([]byte(trajectory), &f.Trajectory); err != nil {
			return nil, fmt.Errorf("unmarshal trajectory: %w", err)
		}
		if f.CalculatedAt, err = parseTimestamp(calculatedAt); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return forecasts, nil
}
