package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/steviebd/swole-tracker/internal/errors"
	"github.com/steviebd/swole-tracker/internal/workout"
)

type workoutRequest struct {
	// Date is formatted as 2006-01-02 and defaults to today.
	Date        string                   `json:"date"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
	Exercises   []workout.LoggedExercise `json:"exercises"`
}

func (req workoutRequest) toLog() (workout.WorkoutLog, error) {
	log := workout.WorkoutLog{
		Date:        time.Time{},
		CompletedAt: req.CompletedAt,
		Exercises:   req.Exercises,
	}
	if req.Date != "" {
		date, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			return workout.WorkoutLog{}, fmt.Errorf("parse date: %w", err)
		}
		log.Date = date
	}

	if len(log.Exercises) == 0 {
		return workout.WorkoutLog{}, errors.New("workout has no exercises")
	}
	for i, e := range log.Exercises {
		log.Exercises[i].Name = strings.TrimSpace(e.Name)
		if log.Exercises[i].Name == "" {
			return workout.WorkoutLog{}, fmt.Errorf("exercise %d has no name", i+1)
		}
		for j, s := range e.Sets {
			if s.Weight < 0 || s.Reps < 0 {
				return workout.WorkoutLog{}, fmt.Errorf("%s set %d has negative weight or reps", e.Name, j+1)
			}
		}
	}
	return log, nil
}

// workoutPOST logs a completed workout and responds with the achieved milestones and refreshed PR forecasts.
func (app *application) workoutPOST(w http.ResponseWriter, r *http.Request) {
	var req workoutRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	log, err := req.toLog()
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := app.workoutService.LogWorkout(r.Context(), log)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, outcome)
}

type evaluateRequest struct {
	MasterExerciseIDs []int `json:"masterExerciseIds"`
}

type evaluateResponse struct {
	Notifications []workout.Notification `json:"notifications"`
}

func (app *application) milestonesEvaluatePOST(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	var req evaluateRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	notifications, err := app.workoutService.EvaluateMilestones(r.Context(), workoutID, req.MasterExerciseIDs)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, evaluateResponse{Notifications: notifications})
}
