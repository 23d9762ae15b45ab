package main

import (
	"net/http"
)

type forecastsRequest struct {
	MasterExerciseIDs []int `json:"masterExerciseIds"`
}

func (app *application) forecastsGET(w http.ResponseWriter, r *http.Request) {
	result, err := app.workoutService.ListForecasts(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}

// forecastsPOST recomputes the forecasts of the given master exercises. Exercises without enough history are
// removed from the stored forecasts.
func (app *application) forecastsPOST(w http.ResponseWriter, r *http.Request) {
	var req forecastsRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.MasterExerciseIDs) == 0 {
		app.clientError(w, r, http.StatusBadRequest, "masterExerciseIds is required")
		return
	}

	result, err := app.workoutService.RecomputeForecasts(r.Context(), req.MasterExerciseIDs)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}
