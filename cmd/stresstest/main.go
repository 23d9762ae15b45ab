package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/steviebd/swole-tracker/internal/e2etest"
	"github.com/steviebd/swole-tracker/internal/logging"
	"github.com/steviebd/swole-tracker/internal/testhelpers"
	"github.com/steviebd/swole-tracker/internal/workout"
	"golang.org/x/sync/errgroup"
)

const (
	userSetupTimeout          = 30 * time.Second
	scenarioTimeout           = 30 * time.Second
	historyTimeout            = 5 * time.Minute
	maxConcurrentSetups       = 10
	maxConcurrentOperations   = 20
	defaultNumUsers           = 10
	firstUserID               = 10_000
	baseWeight                = 60.0
	weeklyProgression         = 2.5
	workingReps               = 5
	workingSets               = 3
	successRateThreshold      = 95.0
	percentageMultiplier      = 100
	workoutHistoryWeeks       = 26 // 6 months of weekly workouts
	daysPerWeek               = 7
	minArgsCount              = 2
	maxArgsCount              = 3
	readinessRecoveryBase     = 50
	readinessRecoveryVariance = 50
)

//nolint:gochecknoglobals // fixed training split.
var exercises = []string{"Squat", "Bench Press", "Deadlift"}

// AuthenticatedUser holds a client with a valid session.
type AuthenticatedUser struct {
	Client *e2etest.Client
	UserID int
}

// SetupUsers logs in the given number of users through the development login and saves their profiles.
func SetupUsers(ctx context.Context, url string, numUsers int, logger *slog.Logger) ([]*AuthenticatedUser, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user setup", slog.Int("num_users", numUsers))

	users := make([]*AuthenticatedUser, numUsers)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSetups)

	for i := range numUsers {
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(ctx, userSetupTimeout)
			defer cancel()

			client, err := e2etest.NewClient(url)
			if err != nil {
				return fmt.Errorf("creating client for user %d: %w", i, err)
			}
			userID := firstUserID + i
			if err = client.Login(userCtx, userID); err != nil {
				return fmt.Errorf("login user %d: %w", userID, err)
			}
			profile := workout.DefaultProfile()
			profile.DisplayName = "stress-" + strconv.Itoa(userID)
			if _, err = client.JSON(userCtx, http.MethodPut, "/api/profile", profile, nil); err != nil {
				return fmt.Errorf("save profile of user %d: %w", userID, err)
			}
			users[i] = &AuthenticatedUser{Client: client, UserID: userID}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("user setup: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users set up successfully", slog.Int("total_users", len(users)))
	return users, nil
}

func workoutFor(date time.Time, weight float64) map[string]any {
	logged := make([]workout.LoggedExercise, 0, len(exercises))
	for _, name := range exercises {
		sets := []workout.SetRecord{{Weight: weight / 2, Reps: workingReps, Warmup: true}} //nolint:mnd // half.
		for range workingSets {
			sets = append(sets, workout.SetRecord{Weight: weight, Reps: workingReps, Warmup: false})
		}
		logged = append(logged, workout.LoggedExercise{Name: name, Sets: sets})
	}
	return map[string]any{
		"date":      date.Format(time.DateOnly),
		"exercises": logged,
	}
}

// GenerateWorkoutHistory logs six months of weekly, slowly progressing workouts for a user.
func GenerateWorkoutHistory(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	now := time.Now()
	startDate := now.AddDate(0, -6, 0)

	for week := range workoutHistoryWeeks {
		workoutDate := startDate.AddDate(0, 0, week*daysPerWeek)
		if workoutDate.After(now) {
			continue
		}
		weight := baseWeight + weeklyProgression*float64(week)
		if _, err := user.Client.JSON(ctx, http.MethodPost, "/api/workouts", workoutFor(workoutDate, weight),
			nil); err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "Failed to generate workout",
				slog.Int("user_id", user.UserID),
				slog.Time("date", workoutDate),
				slog.Any("error", err))
			continue
		}
	}
	return nil
}

// GenerateWorkoutHistoryForUsers generates workout history for all users concurrently.
func GenerateWorkoutHistoryForUsers(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSetups)

	for _, u := range users {
		g.Go(func() error {
			historyCtx, cancel := context.WithTimeout(ctx, historyTimeout)
			defer cancel()
			if err := GenerateWorkoutHistory(historyCtx, u, logger); err != nil {
				failed.Add(1)
				logger.LogAttrs(historyCtx, slog.LevelWarn, "Workout history generation failed",
					slog.Int("user_id", u.UserID), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("workout history generation failed for %d users", n)
	}
	return nil
}

// TrainingDayScenario walks through a training day: score readiness, fetch targets and warm-ups, log the workout
// and ask for coaching.
func TrainingDayScenario(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	client := user.Client
	recovery := float64(readinessRecoveryBase + time.Now().UnixNano()%readinessRecoveryVariance)

	var report workout.ReadinessReport
	if _, err := client.JSON(ctx, http.MethodPost, "/api/readiness", map[string]any{
		"snapshot": workout.BiometricSnapshot{ //nolint:exhaustruct // partial wearable data.
			RecoveryScore:    &recovery,
			SleepPerformance: &recovery,
		},
	}, &report); err != nil {
		return fmt.Errorf("score readiness: %w", err)
	}

	var top float64
	for _, name := range exercises {
		path := "/api/exercises/" + strings.ReplaceAll(name, " ", "%20")
		var progression struct {
			Suggestions []workout.Suggestion `json:"suggestions"`
		}
		if _, err := client.JSON(ctx, http.MethodGet,
			path+"/progression?rho="+strconv.FormatFloat(report.Rho, 'f', 2, 64), nil, &progression); err != nil {
			return fmt.Errorf("suggest progression for %s: %w", name, err)
		}
		if len(progression.Suggestions) == 0 {
			return fmt.Errorf("no suggestions for %s", name)
		}
		if progression.Suggestions[0].Type == workout.SuggestionWeight {
			top = max(top, progression.Suggestions[0].Suggested)
		}
		if _, err := client.JSON(ctx, http.MethodGet, path+"/warmup?weight=100&reps=5", nil, nil); err != nil {
			return fmt.Errorf("plan warm-up for %s: %w", name, err)
		}
	}
	if top == 0 {
		top = baseWeight
	}

	var outcome workout.WorkoutOutcome
	if _, err := client.JSON(ctx, http.MethodPost, "/api/workouts", workoutFor(time.Now(), top), &outcome); err != nil {
		return fmt.Errorf("log workout: %w", err)
	}

	doc, err := client.PostDoc(ctx, "/api/coach", map[string]any{
		"exercises":     exercises,
		"notifications": outcome.Notifications,
	})
	if err != nil {
		return fmt.Errorf("get coach advice: %w", err)
	}
	if doc.Find("section.coach-advice").Length() == 0 {
		return errors.New("coach response has no advice section")
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Training day scenario completed",
		slog.Int("user_id", user.UserID),
		slog.Int("notifications", len(outcome.Notifications)),
		slog.Int("forecasts", outcome.Forecasts.TotalCount))
	return nil
}

// RunLoadTest runs the training day scenario for every user concurrently.
func RunLoadTest(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, u := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := TrainingDayScenario(scenarioCtx, u, logger); err != nil {
				failureCount.Add(1)
				// Failures are counted instead of stopping the other scenarios.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("user_id", u.UserID),
					slog.Any("error", err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(userCount) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) < minArgsCount || len(os.Args) > maxArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname> [num_users]")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		numUsers = defaultNumUsers
		start    = time.Now()
		err      error
	)
	if len(os.Args) == maxArgsCount {
		if numUsers, err = strconv.Atoi(os.Args[2]); err != nil || numUsers <= 0 {
			logger.LogAttrs(ctx, slog.LevelError, "num_users must be a positive integer")
			os.Exit(1)
		}
	}
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	setupStart := time.Now()
	users, err := SetupUsers(ctx, url, numUsers, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("authenticated_users", len(users)))

	historyStart := time.Now()
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting workout history generation",
		slog.Int("num_users", len(users)),
		slog.Int("weeks_per_user", workoutHistoryWeeks))
	if err = GenerateWorkoutHistoryForUsers(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "some workout history generation failed, continuing with load test",
			slog.Any("error", err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Workout history generation completed",
		slog.Duration("history_duration", time.Since(historyStart)))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
