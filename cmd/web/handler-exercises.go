package main

import (
	"net/http"
	"strings"

	"github.com/steviebd/swole-tracker/internal/workout"
)

const (
	neutralReadiness   = 0.5
	defaultWorkingReps = 5
)

type progressionResponse struct {
	ExerciseName string               `json:"exerciseName"`
	Suggestions  []workout.Suggestion `json:"suggestions"`
	// Load is omitted for exercises without working sets.
	Load *workout.LoadTarget `json:"load,omitempty"`
}

func (app *application) progressionGET(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	rho, err := queryFloat(r, "rho", neutralReadiness)
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	strategy := workout.ParseStrategy(r.URL.Query().Get("strategy"))

	suggestions, err := app.workoutService.SuggestProgression(r.Context(), name, rho, strategy)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []workout.Suggestion{}
	}
	response := progressionResponse{ExerciseName: name, Suggestions: suggestions, Load: nil}

	load, ok, err := app.workoutService.SuggestLoad(r.Context(), name, rho)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if ok {
		response.Load = &load
	}
	app.writeJSON(w, r, http.StatusOK, response)
}

func (app *application) warmupGET(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	weight, err := queryFloat(r, "weight", 0)
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	reps, err := queryInt(r, "reps", defaultWorkingReps)
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if weight <= 0 || reps <= 0 {
		app.clientError(w, r, http.StatusBadRequest, "weight and reps must be positive")
		return
	}

	pattern, err := app.workoutService.PlanWarmup(r.Context(), name, weight, reps)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, pattern)
}

type linkRequest struct {
	MasterExerciseID int `json:"masterExerciseId"`
}

// exerciseLinkPUT tracks a renamed or template specific exercise under an existing master exercise.
func (app *application) exerciseLinkPUT(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" || req.MasterExerciseID <= 0 {
		app.clientError(w, r, http.StatusBadRequest, "exercise name and masterExerciseId are required")
		return
	}

	if err := app.workoutService.LinkExercise(r.Context(), name, req.MasterExerciseID); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) masterExercisesGET(w http.ResponseWriter, r *http.Request) {
	masters, err := app.workoutService.ListMasterExercises(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, masters)
}

func (app *application) defaultMilestonesPOST(w http.ResponseWriter, r *http.Request) {
	masterID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}

	milestones, err := app.workoutService.SeedDefaultMilestones(r.Context(), masterID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	status := http.StatusCreated
	if len(milestones) == 0 {
		status = http.StatusOK
	}
	app.writeJSON(w, r, status, milestones)
}
