package workout_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/steviebd/swole-tracker/internal/contexthelpers"
	"github.com/steviebd/swole-tracker/internal/metrics"
	"github.com/steviebd/swole-tracker/internal/ptr"
	"github.com/steviebd/swole-tracker/internal/sqlite"
	"github.com/steviebd/swole-tracker/internal/testhelpers"
	"github.com/steviebd/swole-tracker/internal/workout"
)

const testUserID = 7

func newTestService(t *testing.T) (*workout.Service, *sqlite.Database, context.Context) {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))

	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	svc := workout.NewService(db, logger, workout.DefaultConfig(), metrics.NewTestManager())
	return svc, db, contexthelpers.WithUser(ctx, testUserID)
}

func logSquat(t *testing.T, ctx context.Context, svc *workout.Service, date time.Time, sets ...workout.SetRecord) workout.WorkoutOutcome {
	t.Helper()
	outcome, err := svc.LogWorkout(ctx, workout.WorkoutLog{
		Date:        date,
		CompletedAt: nil,
		Exercises:   []workout.LoggedExercise{{Name: "Squat", Sets: sets}},
	})
	if err != nil {
		t.Fatalf("LogWorkout() unexpected error = %v", err)
	}
	return outcome
}

func set(weight float64, reps int) workout.SetRecord {
	return workout.SetRecord{Weight: weight, Reps: reps, Warmup: false}
}

func warmup(weight float64, reps int) workout.SetRecord {
	return workout.SetRecord{Weight: weight, Reps: reps, Warmup: true}
}

func Test_LogWorkout_AchievesVolumeMilestoneOnce(t *testing.T) {
	svc, _, ctx := newTestService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	first := logSquat(t, ctx, svc, today.AddDate(0, 0, -1), set(60, 5))
	if len(first.Workout.MasterIDs) != 1 {
		t.Fatalf("MasterIDs = %v, want one master exercise", first.Workout.MasterIDs)
	}
	masterID := first.Workout.MasterIDs[0]

	milestones, err := svc.SeedDefaultMilestones(ctx, masterID)
	if err != nil {
		t.Fatalf("SeedDefaultMilestones() unexpected error = %v", err)
	}
	if len(milestones) == 0 {
		t.Fatal("expected default milestones")
	}

	// Seeding twice does not duplicate milestones.
	again, err := svc.SeedDefaultMilestones(ctx, masterID)
	if err != nil {
		t.Fatalf("SeedDefaultMilestones() second call unexpected error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second seed created %d milestones, want 0", len(again))
	}

	// Intermediate defaults include a 3000 volume milestone and an 80kg absolute weight milestone.
	outcome := logSquat(t, ctx, svc, today, set(100, 10), set(100, 10), set(100, 10))

	got := map[workout.MilestoneType][]float64{}
	for _, n := range outcome.Notifications {
		if n.Type != workout.NotificationMilestoneAchieved || n.ExerciseName != "Squat" {
			t.Errorf("unexpected notification %+v", n)
		}
		got[n.MilestoneType] = append(got[n.MilestoneType], n.TargetValue)
	}
	want := map[workout.MilestoneType][]float64{
		workout.MilestoneAbsoluteWeight: {80, 100, 120},
		workout.MilestoneVolume:         {3000},
		workout.MilestoneReps:           {10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("achieved milestones mismatch (-want +got):\n%s", diff)
	}

	// Re-evaluating the same workout inside the dedup window records nothing.
	notifications, err := svc.EvaluateMilestones(ctx, outcome.Workout.ID, outcome.Workout.MasterIDs)
	if err != nil {
		t.Fatalf("EvaluateMilestones() unexpected error = %v", err)
	}
	if len(notifications) != 0 {
		t.Errorf("re-evaluation notifications = %v, want none", notifications)
	}
}

func Test_RecomputeForecasts_ReplacesLiveForecast(t *testing.T) {
	svc, db, ctx := newTestService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var outcome workout.WorkoutOutcome
	for i, w := range []float64{100, 102.5, 105} {
		outcome = logSquat(t, ctx, svc, today.AddDate(0, 0, i-3), set(w, 1))
	}
	if outcome.Forecasts.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want 1", outcome.Forecasts.TotalCount)
	}
	forecast := outcome.Forecasts.Forecasts[0]
	if forecast.CurrentPR != 105 || forecast.ForecastedWeight != 107.5 || forecast.UserID != testUserID {
		t.Errorf("unexpected forecast %+v", forecast)
	}

	outcome = logSquat(t, ctx, svc, today, set(107.5, 1))
	if got := outcome.Forecasts.Forecasts[0].ForecastedWeight; got != 110 {
		t.Errorf("ForecastedWeight = %v, want 110", got)
	}

	stored, err := svc.ListForecasts(ctx)
	if err != nil {
		t.Fatalf("ListForecasts() unexpected error = %v", err)
	}
	if stored.TotalCount != 1 {
		t.Fatalf("stored forecasts = %d, want exactly one live row", stored.TotalCount)
	}
	if diff := cmp.Diff(outcome.Forecasts.Forecasts[0].Trajectory, stored.Forecasts[0].Trajectory); diff != "" {
		t.Errorf("stored trajectory mismatch (-want +got):\n%s", diff)
	}

	// A regression removes the stale forecast instead of keeping a hallucinated improvement.
	for i := range 10 {
		logSquat(t, ctx, svc, today.AddDate(0, 0, i+1), set(90-float64(i), 1))
	}
	stored, err = svc.ListForecasts(ctx)
	if err != nil {
		t.Fatalf("ListForecasts() unexpected error = %v", err)
	}
	if stored.TotalCount != 0 {
		t.Errorf("stored forecasts = %+v, want none after a decline", stored)
	}

	var rows int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM pr_forecasts").Scan(&rows); err != nil {
		t.Fatalf("count forecasts: %v", err)
	}
	if rows != 0 {
		t.Errorf("pr_forecasts rows = %d, want 0", rows)
	}
}

func Test_SuggestProgression_UsesLinkedHistory(t *testing.T) {
	svc, _, ctx := newTestService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	suggestions, err := svc.SuggestProgression(ctx, "Squat", 0.8, workout.StrategyAdaptive)
	if err != nil {
		t.Fatalf("SuggestProgression() unexpected error = %v", err)
	}
	if suggestions[0].Suggested != 20 || suggestions[0].Rationale != "no historical data" {
		t.Errorf("unexpected starting suggestion %+v", suggestions[0])
	}

	first := logSquat(t, ctx, svc, today.AddDate(0, 0, -3), set(100, 10))
	if err = svc.LinkExercise(ctx, "Low Bar Squat", first.Workout.MasterIDs[0]); err != nil {
		t.Fatalf("LinkExercise() unexpected error = %v", err)
	}
	if _, err = svc.LogWorkout(ctx, workout.WorkoutLog{
		Date:        today,
		CompletedAt: ptr.Ref(time.Now()),
		Exercises:   []workout.LoggedExercise{{Name: "Low Bar Squat", Sets: []workout.SetRecord{set(102, 10)}}},
	}); err != nil {
		t.Fatalf("LogWorkout() unexpected error = %v", err)
	}

	suggestions, err = svc.SuggestProgression(ctx, "Squat", 0.5, workout.StrategyAdaptive)
	if err != nil {
		t.Fatalf("SuggestProgression() unexpected error = %v", err)
	}
	want := []workout.Suggestion{{
		ExerciseName:    "Squat",
		Type:            workout.SuggestionWeight,
		Current:         102,
		Suggested:       92.5,
		Weight:          0,
		Rationale:       "plateau with low readiness: deload 10%",
		PlateauDetected: true,
	}}
	if diff := cmp.Diff(want, suggestions); diff != "" {
		t.Errorf("SuggestProgression() mismatch (-want +got):\n%s", diff)
	}
}

func Test_PlanWarmup_FallsBack(t *testing.T) {
	svc, _, ctx := newTestService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	pattern, err := svc.PlanWarmup(ctx, "Deadlift", 100, 5)
	if err != nil {
		t.Fatalf("PlanWarmup() unexpected error = %v", err)
	}
	if pattern.Source != workout.WarmupSourceDefault || len(pattern.Sets) != 3 {
		t.Errorf("unexpected default pattern %+v", pattern)
	}

	profile := workout.DefaultProfile()
	profile.WarmupProtocol = &workout.ProtocolOptions{
		SetsCount: 2, Percentages: []float64{50, 75}, RepsStrategy: workout.RepsFixed, FixedReps: 3,
	}
	if err = svc.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("SaveProfile() unexpected error = %v", err)
	}
	pattern, err = svc.PlanWarmup(ctx, "Deadlift", 100, 5)
	if err != nil {
		t.Fatalf("PlanWarmup() unexpected error = %v", err)
	}
	if pattern.Source != workout.WarmupSourceProtocol || len(pattern.Sets) != 2 || pattern.Sets[1].Weight != 75 {
		t.Errorf("unexpected protocol pattern %+v", pattern)
	}

	for i := range 2 {
		_, err = svc.LogWorkout(ctx, workout.WorkoutLog{
			Date:        today.AddDate(0, 0, -i),
			CompletedAt: nil,
			Exercises: []workout.LoggedExercise{{
				Name: "Deadlift",
				Sets: []workout.SetRecord{warmup(50, 8), set(100, 5)},
			}},
		})
		if err != nil {
			t.Fatalf("LogWorkout() unexpected error = %v", err)
		}
	}
	pattern, err = svc.PlanWarmup(ctx, "Deadlift", 120, 5)
	if err != nil {
		t.Fatalf("PlanWarmup() unexpected error = %v", err)
	}
	want := workout.WarmupPattern{
		Confidence:   workout.WarmupConfidenceMedium,
		Sets:         []workout.WarmupSet{{SetNumber: 1, Weight: 60, Reps: 8, PercentageOfTop: 0.5}},
		Source:       workout.WarmupSourceHistory,
		SessionCount: 2,
	}
	if diff := cmp.Diff(want, pattern); diff != "" {
		t.Errorf("PlanWarmup() mismatch (-want +got):\n%s", diff)
	}
}

func Test_Profile_RoundTrip(t *testing.T) {
	svc, _, ctx := newTestService(t)

	got, err := svc.GetProfile(ctx)
	if err != nil {
		t.Fatalf("GetProfile() unexpected error = %v", err)
	}
	if diff := cmp.Diff(workout.DefaultProfile(), got); diff != "" {
		t.Errorf("default profile mismatch (-want +got):\n%s", diff)
	}

	want := workout.Profile{
		DisplayName:         "Lifter",
		ExperienceLevel:     workout.ExperienceBeginner,
		BodyweightKg:        ptr.Ref(72.5),
		WeightIncrement:     1.25,
		LinearIncrement:     5,
		PercentageIncrement: 2,
		ProgressionModel:    workout.ProgressionModelWeight,
		WarmupProtocol:      nil,
	}
	if err = svc.SaveProfile(ctx, want); err != nil {
		t.Fatalf("SaveProfile() unexpected error = %v", err)
	}
	if got, err = svc.GetProfile(ctx); err != nil {
		t.Fatalf("GetProfile() unexpected error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	report, err := svc.ScoreReadiness(ctx, workout.BiometricSnapshot{RecoveryScore: ptr.Ref(100.0)}, //nolint:exhaustruct,lll // recovery only.
		&workout.ManualWellness{EnergyLevel: 10, SleepQuality: 10, Notes: ""})
	if err != nil {
		t.Fatalf("ScoreReadiness() unexpected error = %v", err)
	}
	if report.Delta != 1.05 || report.ExperienceLevel != workout.ExperienceBeginner {
		t.Errorf("beginner report = %+v, want Delta capped at 1.05", report)
	}
}

func Test_SeedDefaultMilestones_UnknownExercise(t *testing.T) {
	svc, _, ctx := newTestService(t)

	if _, err := svc.SeedDefaultMilestones(ctx, 404); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("SeedDefaultMilestones() error = %v, want ErrNotFound", err)
	}
}

func Test_EvaluateMilestones_RequiresOwnWorkout(t *testing.T) {
	svc, db, ctx := newTestService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	outcome := logSquat(t, ctx, svc, today, set(100, 5))
	masterIDs := outcome.Workout.MasterIDs
	if _, err := svc.SeedDefaultMilestones(ctx, masterIDs[0]); err != nil {
		t.Fatalf("SeedDefaultMilestones() unexpected error = %v", err)
	}

	countAchievements := func() int {
		t.Helper()
		var n int
		if err := db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM milestone_achievements").Scan(&n); err != nil {
			t.Fatalf("count achievements: %v", err)
		}
		return n
	}
	before := countAchievements()

	if _, err := svc.EvaluateMilestones(ctx, 99999, masterIDs); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("EvaluateMilestones(unknown workout) error = %v, want ErrNotFound", err)
	}

	otherCtx := contexthelpers.WithUser(t.Context(), testUserID+1)
	if _, err := svc.EvaluateMilestones(otherCtx, outcome.Workout.ID, masterIDs); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("EvaluateMilestones(other user's workout) error = %v, want ErrNotFound", err)
	}

	if after := countAchievements(); after != before {
		t.Errorf("achievements = %d after rejected evaluations, want %d", after, before)
	}
}

func Test_SuggestLoad_ScalesPreviousWeightByDelta(t *testing.T) {
	svc, _, ctx := newTestService(t)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if _, ok, err := svc.SuggestLoad(ctx, "Squat", 0.8); err != nil || ok {
		t.Errorf("SuggestLoad() without history = %v, %v, want no load", ok, err)
	}

	logSquat(t, ctx, svc, today, warmup(60, 5), set(100, 5), set(95, 5))

	got, ok, err := svc.SuggestLoad(ctx, "Squat", 0.8)
	if err != nil || !ok {
		t.Fatalf("SuggestLoad() = %v, %v, want a load", ok, err)
	}
	// Intermediate lifters at rho 0.8 get Delta 1.09, and 109kg snaps down to 107.5kg.
	if math.Abs(got.Delta-1.09) > 1e-9 {
		t.Errorf("Delta = %v, want 1.09", got.Delta)
	}
	got.Delta = 0
	want := workout.LoadTarget{
		ExerciseName:    "Squat",
		PreviousWeight:  100,
		Delta:           0,
		SuggestedWeight: 107.5,
		ExperienceLevel: workout.ExperienceIntermediate,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SuggestLoad() mismatch (-want +got):\n%s", diff)
	}
}
