package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		common = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(noCache(next)))
		}
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(common(app.timeout(defaultTimeout, next)))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(common(app.sessionManager.LoadAndSave(
				app.authenticate(app.timeout(defaultTimeout, next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
		slowSession = func(next http.Handler) http.Handler {
			return app.recoverPanic(common(app.sessionManager.LoadAndSave(
				app.authenticate(app.timeout(coachTimeout, app.mustAuthenticate(next))))))
		}
	)

	mux.Handle("GET /api/profile", mustSession(http.HandlerFunc(app.profileGET)))
	mux.Handle("PUT /api/profile", mustSession(http.HandlerFunc(app.profilePUT)))

	mux.Handle("POST /api/readiness", mustSession(http.HandlerFunc(app.readinessPOST)))

	mux.Handle("GET /api/exercises/{name}/progression", mustSession(http.HandlerFunc(app.progressionGET)))
	mux.Handle("GET /api/exercises/{name}/warmup", mustSession(http.HandlerFunc(app.warmupGET)))
	mux.Handle("PUT /api/exercises/{name}/link", mustSession(http.HandlerFunc(app.exerciseLinkPUT)))

	mux.Handle("GET /api/master-exercises", mustSession(http.HandlerFunc(app.masterExercisesGET)))
	mux.Handle("POST /api/master-exercises/{id}/milestones/defaults",
		mustSession(http.HandlerFunc(app.defaultMilestonesPOST)))

	mux.Handle("GET /api/forecasts", mustSession(http.HandlerFunc(app.forecastsGET)))
	mux.Handle("POST /api/forecasts", mustSession(http.HandlerFunc(app.forecastsPOST)))

	mux.Handle("POST /api/workouts", mustSession(http.HandlerFunc(app.workoutPOST)))
	mux.Handle("POST /api/workouts/{id}/milestones/evaluate", mustSession(http.HandlerFunc(app.milestonesEvaluatePOST)))

	mux.Handle("POST /api/coach", slowSession(http.HandlerFunc(app.coachPOST)))

	if app.devLogin {
		mux.Handle("POST /api/dev/login", session(http.HandlerFunc(app.devLoginPOST)))
	}
	mux.Handle("POST /api/logout", session(http.HandlerFunc(app.logoutPOST)))

	mux.Handle("GET /api/healthy", noAuth(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /api/test/timeout", noAuth(http.HandlerFunc(app.testTimeout)))
	mux.Handle("GET /metrics", app.recoverPanic(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))) //nolint:exhaustruct // defaults.

	mux.Handle("/", noAuth(http.HandlerFunc(app.notFound)))

	return mux
}
