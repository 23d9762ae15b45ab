package main

import (
	"net/http"

	"github.com/steviebd/swole-tracker/internal/workout"
)

type readinessRequest struct {
	Snapshot workout.BiometricSnapshot `json:"snapshot"`
	Wellness *workout.ManualWellness   `json:"wellness,omitempty"`
}

// readinessPOST scores today's readiness. Missing signals degrade the score instead of failing the request.
func (app *application) readinessPOST(w http.ResponseWriter, r *http.Request) {
	var req readinessRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	report, err := app.workoutService.ScoreReadiness(r.Context(), req.Snapshot, req.Wellness)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, report)
}
