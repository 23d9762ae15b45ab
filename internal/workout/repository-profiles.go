package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
)

// sqliteProfileRepository stores the user preferences on the users table.
type sqliteProfileRepository struct {
	baseRepository
}

// Get retrieves the profile of the authenticated user. Users without a row get [DefaultProfile].
func (r *sqliteProfileRepository) Get(ctx context.Context) (Profile, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var (
		profile    Profile
		level      string
		model      string
		bodyweight sql.NullFloat64
		protocol   sql.NullString
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT display_name, experience_level, bodyweight_kg, weight_increment, linear_increment,
		       percentage_increment, progression_model, warmup_protocol
		FROM users
		WHERE id = ?`, userID).Scan(
		&profile.DisplayName, &level, &bodyweight, &profile.WeightIncrement, &profile.LinearIncrement,
		&profile.PercentageIncrement, &model, &protocol,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}

	profile.ExperienceLevel = ParseExperienceLevel(level)
	profile.ProgressionModel = ProgressionModel(model)
	if bodyweight.Valid {
		profile.BodyweightKg = &bodyweight.Float64
	}
	if protocol.Valid {
		var opts ProtocolOptions
		if err = json.Unmarshal([]byte(protocol.String), &opts); err != nil {
			return Profile{}, fmt.Errorf("unmarshal warm-up protocol: %w", err)
		}
		profile.WarmupProtocol = &opts
	}

	return profile, nil
}

// Set saves the profile of the authenticated user.
func (r *sqliteProfileRepository) Set(ctx context.Context, profile Profile) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var protocol sql.NullString
	if profile.WarmupProtocol != nil {
		data, err := json.Marshal(profile.WarmupProtocol)
		if err != nil {
			return fmt.Errorf("marshal warm-up protocol: %w", err)
		}
		protocol = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO users (
			id, display_name, experience_level, bodyweight_kg, weight_increment, linear_increment,
			percentage_increment, progression_model, warmup_protocol
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			experience_level = excluded.experience_level,
			bodyweight_kg = excluded.bodyweight_kg,
			weight_increment = excluded.weight_increment,
			linear_increment = excluded.linear_increment,
			percentage_increment = excluded.percentage_increment,
			progression_model = excluded.progression_model,
			warmup_protocol = excluded.warmup_protocol`,
		userID, profile.DisplayName, profile.ExperienceLevel, profile.BodyweightKg, profile.WeightIncrement,
		profile.LinearIncrement, profile.PercentageIncrement, profile.ProgressionModel, protocol,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	return nil
}

// ensureUser creates an empty users row so that foreign keys of the authenticated user resolve.
func ensureUser(ctx context.Context, tx *sql.Tx, userID int) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}
