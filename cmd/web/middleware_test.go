package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/steviebd/swole-tracker/internal/contexthelpers"
	"github.com/steviebd/swole-tracker/internal/metrics"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	return nil
}

// newTestApplication creates an application without storage. The session manager must be created outside
// synctest bubbles because its in-memory store starts a cleanup goroutine.
func newTestApplication(sessionManager *scs.SessionManager) *application {
	m, reg := metrics.NewTestManagerAndRegistry()
	return &application{ //nolint:exhaustruct // this is a test
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionManager: sessionManager,
		metrics:        m,
		registry:       reg,
	}
}

func sleepHandler(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
		_, _ = w.Write([]byte("done"))
	}
}

func Test_application_timeout(t *testing.T) {
	sessionManager := scs.New()

	tests := []struct {
		name     string
		sleepMS  int
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleepMS:  500,
			timesOut: false,
		},
		{
			name:     "times out",
			sleepMS:  3000,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				handler := newTestApplication(sessionManager).routes()

				url := fmt.Sprintf("/api/test/timeout?sleep_ms=%d", tt.sleepMS)
				req := httptest.NewRequest(http.MethodGet, url, nil)
				w := newTimeoutResponseWriter()

				handler.ServeHTTP(w, req)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}

	t.Run("coach timeout is longer", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			app := newTestApplication(sessionManager)
			w := newTimeoutResponseWriter()

			app.timeout(coachTimeout, http.HandlerFunc(sleepHandler)).
				ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/coach", nil))

			if w.Code != http.StatusOK || w.Body.String() != "done" {
				t.Errorf("got %d %q, want 200 done", w.Code, w.Body.String())
			}
		})
	})
}

func Test_application_mustAuthenticate(t *testing.T) {
	app := newTestApplication(scs.New())
	protected := app.mustAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name          string
		authenticated bool
		want          int
	}{
		{name: "anonymous", authenticated: false, want: http.StatusUnauthorized},
		{name: "authenticated", authenticated: true, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/master-exercises", nil)
			if tt.authenticated {
				req = contexthelpers.AuthenticateContext(req, 7)
			}
			w := httptest.NewRecorder()

			protected.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("got status %d, want %d", w.Code, tt.want)
			}
		})
	}

	t.Run("routes reject anonymous sessions", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forecasts", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", w.Code)
		}
		if !strings.Contains(w.Body.String(), "authentication required") {
			t.Errorf("unexpected body %s", w.Body.String())
		}
	})
}

func Test_application_recoverPanic(t *testing.T) {
	app := newTestApplication(scs.New())
	handler := app.recoverPanic(app.logAndTraceRequest(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", w.Code)
	}
	if got := w.Header().Get("Connection"); got != "close" {
		t.Errorf("Connection header = %q, want close", got)
	}
	if got := testutil.ToFloat64(app.metrics.CounterRequestPanics); got != 1 {
		t.Errorf("panic counter = %v, want 1", got)
	}
}

func Test_secureHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	secureHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, header := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if w.Header().Get(header) == "" {
			t.Errorf("missing %s header", header)
		}
	}
}
