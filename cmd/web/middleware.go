package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/steviebd/swole-tracker/internal/contexthelpers"
	"github.com/steviebd/swole-tracker/internal/errors"
	"github.com/steviebd/swole-tracker/internal/logging"
)

const (
	userIDSessionKey = "authenticatedUserID"
	timeoutMessage   = `{"error":"timed out"}`
)

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		headerWritten:  false,
	}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	mw.ResponseWriter.WriteHeader(statusCode)

	if !mw.headerWritten {
		mw.statusCode = statusCode
		mw.headerWritten = true
	}
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	written, err := mw.ResponseWriter.Write(b)
	if err != nil {
		return written, fmt.Errorf("write response: %w", err)
	}
	return written, nil
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The API serves JSON and HTML fragments that are inserted by the client, never whole documents.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")

		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logAndTraceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		ctx := r.Context()
		traceID := rand.Text()
		ctx = logging.WithAttrs(
			ctx,
			slog.Any("trace_id", traceID),
			slog.String("proto", proto),
			slog.String("method", method),
			slog.String("uri", uri),
		)
		r = r.WithContext(ctx)

		start := time.Now()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request")

		sw := newStatusResponseWriter(w)

		if !trace.IsEnabled() {
			next.ServeHTTP(sw, r)
		} else {
			taskName := fmt.Sprintf("HTTP %s %s", method, r.URL.Path)
			traceCtx, task := trace.NewTask(ctx, taskName)
			trace.Log(traceCtx, "trace_id", traceID)
			defer func() {
				trace.Log(traceCtx, "response", fmt.Sprintf("status=%d duration=%v", sw.statusCode, time.Since(start)))
				task.End()
			}()

			next.ServeHTTP(sw, r.WithContext(traceCtx))
		}

		duration := time.Since(start)
		app.metrics.CounterRequests.WithLabelValues(method, strconv.Itoa(sw.statusCode)).Inc()
		app.metrics.HistRequestDuration.Observe(duration.Seconds())

		level := slog.LevelInfo
		if sw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(ctx, level, "request completed",
			slog.Int("status_code", sw.statusCode), slog.Duration("duration", duration))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				app.metrics.CounterRequestPanics.Inc()
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authenticate places the user of the session into the request context. Sessions are created by the login
// endpoints; requests without a user pass through unauthenticated.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := app.sessionManager.GetInt(ctx, userIDSessionKey)
		if userID <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		// Hash token with sha256 to avoid leaking it in logs.
		tokenHash := sha256.Sum256([]byte(app.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(contexthelpers.WithUser(ctx, userID),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])))
		ctx = logging.WithUserID(ctx, userID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// mustAuthenticate rejects requests without an authenticated user.
func (app *application) mustAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !contexthelpers.IsAuthenticated(r.Context()) {
			app.clientError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// timeout times out the request and cancels the context using http.TimeoutHandler. A trace is captured when the
// flight recorder is enabled.
func (app *application) timeout(d time.Duration, next http.Handler) http.Handler {
	// Writing the response takes time, so the handler deadline is a little shorter than the write deadline.
	handlerTimeout := d - 200*time.Millisecond //nolint:mnd // 200ms
	timeoutHandler := http.TimeoutHandler(next, handlerTimeout, timeoutMessage)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d > defaultTimeout {
			rc := http.NewResponseController(w)
			if err := rc.SetWriteDeadline(time.Now().Add(d)); err != nil {
				app.logger.LogAttrs(r.Context(), slog.LevelWarn, "unable to extend write deadline",
					errors.SlogError(errors.Wrap(err, "set write deadline")))
			}
		}

		start := time.Now()
		sw := newStatusResponseWriter(w)
		timeoutHandler.ServeHTTP(sw, r)
		if sw.statusCode == http.StatusServiceUnavailable && time.Since(start) >= handlerTimeout {
			app.logger.LogAttrs(r.Context(), slog.LevelWarn, "request timed out",
				slog.Duration("timeout", handlerTimeout))
			if app.recorder != nil {
				app.recorder.CaptureTimeout(r.Context())
			}
		}
	})
}
