package main

import (
	"net/http"

	"github.com/steviebd/swole-tracker/internal/workout"
)

func (app *application) profileGET(w http.ResponseWriter, r *http.Request) {
	profile, err := app.workoutService.GetProfile(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, profile)
}

func (app *application) profilePUT(w http.ResponseWriter, r *http.Request) {
	var profile workout.Profile
	if err := readJSON(w, r, &profile); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if profile.BodyweightKg != nil && *profile.BodyweightKg <= 0 {
		app.clientError(w, r, http.StatusBadRequest, "bodyweightKg must be positive")
		return
	}

	ctx := r.Context()
	if err := app.workoutService.SaveProfile(ctx, profile); err != nil {
		app.serverError(w, r, err)
		return
	}
	saved, err := app.workoutService.GetProfile(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, saved)
}
