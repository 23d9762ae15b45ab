package workout

import (
	"math"
	"time"
)

const (
	minForecastPoints    = 3
	maxForecastSessions  = 20
	regressionWindow     = 10
	plateIncrement       = 2.5
	plausibleVelocityMin = 0.5
	plausibleVelocityMax = 5
	implausibleVelocity  = 10
	plausibleBoost       = 0.2
	implausiblePenalty   = 0.3
	maxForecastWeeks     = 52
)

// TrainingFrequency is the expected number of sessions per week for a level.
func TrainingFrequency(level ExperienceLevel) int {
	switch level {
	case ExperienceBeginner:
		return 2 //nolint:mnd // sessions per week.
	case ExperienceAdvanced:
		return 4 //nolint:mnd // sessions per week.
	case ExperienceIntermediate:
		return 3 //nolint:mnd // sessions per week.
	default:
		return 3 //nolint:mnd // sessions per week.
	}
}

// ForecastPR fits a linear trend to the best 1RM of recent sessions, most recent first, and predicts when the next
// plate increment above the current PR is reached.
//
// The second return value is false when there are fewer than three sessions with a 1RM estimate or when the trend
// is flat or declining. Week estimates and the trajectory stop at a 52 week horizon.
func ForecastPR(history []ExerciseSessionRecord, level ExperienceLevel, now time.Time) (PRForecast, bool) {
	if len(history) > maxForecastSessions {
		history = history[:maxForecastSessions]
	}

	var points []float64
	for _, session := range history {
		if orm, ok := session.BestOneRepMax(); ok {
			points = append(points, orm)
		}
	}
	if len(points) < minForecastPoints {
		return PRForecast{}, false //nolint:exhaustruct // empty forecast.
	}

	currentPR := points[0]
	for _, p := range points {
		currentPR = max(currentPR, p)
	}
	currentPR = roundTo(currentPR, 2) //nolint:mnd // two decimals.

	window := points[:min(len(points), regressionWindow)]
	slope, r2 := linearRegression(window)

	// Index grows into the past so an improving lifter has a negative slope. Trends that round to zero are flat.
	velocity := roundTo(max(0, -slope), 2) //nolint:mnd // two decimals.
	if velocity == 0 {
		return PRForecast{}, false //nolint:exhaustruct // empty forecast.
	}

	next := math.Ceil((currentPR+plateIncrement)/plateIncrement-snapEpsilon) * plateIncrement
	sessions := int(math.Ceil((next-currentPR)/velocity - snapEpsilon))
	frequency := TrainingFrequency(level)
	weeks := int(math.Ceil(float64(sessions) / float64(frequency)))
	// Estimates beyond a year are reported at the horizon.
	low := min(max(1, weeks-1), maxForecastWeeks)
	high := min(max(1, weeks+1), maxForecastWeeks)

	confidence := clip(r2, 0, 1)
	switch {
	case velocity >= plausibleVelocityMin && velocity <= plausibleVelocityMax:
		confidence = min(1, confidence+plausibleBoost)
	case velocity > implausibleVelocity:
		confidence = max(0, confidence-implausiblePenalty)
	}
	confidence = roundTo(confidence, 2) //nolint:mnd // two decimals.

	trajectory := make([]TrajectoryPoint, 0, high)
	for week := 1; week <= high; week++ {
		trajectory = append(trajectory, TrajectoryPoint{
			Week:      week,
			OneRepMax: roundTo(currentPR+velocity*float64(frequency*week), 2), //nolint:mnd // two decimals.
		})
	}

	first := history[0]
	return PRForecast{
		UserID:             0,
		MasterExerciseID:   first.MasterExerciseID,
		ExerciseName:       first.ExerciseName,
		CurrentPR:          currentPR,
		ForecastedWeight:   next,
		Velocity:           velocity,
		SessionsToNextPR:   sessions,
		EstimatedWeeksLow:  low,
		EstimatedWeeksHigh: high,
		Confidence:         confidence,
		ConfidencePercent:  int(math.Round(confidence * 100)), //nolint:mnd // percent.
		Trajectory:         trajectory,
		CalculatedAt:       now,
	}, true
}

// linearRegression is an ordinary least squares fit of ys against their index. It returns the slope and the
// coefficient of determination.
func linearRegression(ys []float64) (float64, float64) {
	n := float64(len(ys))
	if n < 2 { //nolint:mnd // a line needs two points.
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return 0, 0
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range ys {
		predicted := intercept + slope*float64(i)
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - predicted) * (y - predicted)
	}
	if ssTot == 0 {
		return slope, 0
	}
	return slope, 1 - ssRes/ssTot
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
