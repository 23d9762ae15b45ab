package workout

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/steviebd/swole-tracker/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"
const dateFormat = time.DateOnly

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// repository groups the SQLite repositories used by [Service].
type repository struct {
	profiles   *sqliteProfileRepository
	exercises  *sqliteExerciseRepository
	workouts   *sqliteWorkoutRepository
	milestones *sqliteMilestoneRepository
	forecasts  *sqliteForecastRepository
}

type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{db: db, logger: logger}
}

func (f *repositoryFactory) newRepository() *repository {
	base := newBaseRepository(f.db, f.logger)
	workouts := &sqliteWorkoutRepository{baseRepository: base}
	return &repository{
		profiles:   &sqliteProfileRepository{baseRepository: base},
		exercises:  &sqliteExerciseRepository{baseRepository: base},
		workouts:   workouts,
		milestones: &sqliteMilestoneRepository{baseRepository: base, workouts: workouts},
		forecasts:  &sqliteForecastRepository{baseRepository: base},
	}
}

// baseRepository provides common database functionality.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{db: db, logger: logger}
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// formatTimestamp stores timestamps in UTC so that they compare lexically.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func formatNullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// inClause expands ids into a placeholder list for an IN expression.
func inClause(ids []int) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + placeholders + ")", args
}
