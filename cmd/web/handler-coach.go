package main

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/steviebd/swole-tracker/internal/coach"
	"github.com/steviebd/swole-tracker/internal/errors"
	"github.com/steviebd/swole-tracker/internal/workout"
)

type coachRequest struct {
	Snapshot      *workout.BiometricSnapshot `json:"snapshot,omitempty"`
	Wellness      *workout.ManualWellness    `json:"wellness,omitempty"`
	Exercises     []string                   `json:"exercises"`
	Strategy      string                     `json:"strategy,omitempty"`
	Notifications []workout.Notification     `json:"notifications,omitempty"`
}

//nolint:gochecknoglobals // parsed once.
var coachFragment = template.Must(template.New("coach").Parse(
	`<section class="coach-advice" data-source="{{.Source}}">{{.HTML}}</section>`))

// coachPOST gathers today's analytics into a briefing and responds with the advice as an HTML fragment.
func (app *application) coachPOST(w http.ResponseWriter, r *http.Request) {
	var req coachRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	briefing := coach.Briefing{
		Readiness:     nil,
		Suggestions:   []workout.Suggestion{},
		Forecasts:     []workout.PRForecast{},
		Notifications: req.Notifications,
	}

	rho := neutralReadiness
	if req.Snapshot != nil || req.Wellness != nil {
		var snapshot workout.BiometricSnapshot
		if req.Snapshot != nil {
			snapshot = *req.Snapshot
		}
		report, err := app.workoutService.ScoreReadiness(ctx, snapshot, req.Wellness)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		briefing.Readiness = &report
		rho = report.Rho
	}

	strategy := workout.ParseStrategy(req.Strategy)
	for _, name := range req.Exercises {
		suggestions, err := app.workoutService.SuggestProgression(ctx, strings.TrimSpace(name), rho, strategy)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		briefing.Suggestions = append(briefing.Suggestions, suggestions...)
	}

	forecasts, err := app.workoutService.ListForecasts(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	briefing.Forecasts = forecasts.Forecasts

	advice := app.coach.Advise(ctx, briefing)
	html, err := coach.RenderHTML(advice.Markdown)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err = coachFragment.Execute(&buf, struct {
		Source coach.Source
		HTML   template.HTML
	}{Source: advice.Source, HTML: html}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "render coach fragment"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
