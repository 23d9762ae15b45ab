// Package pprofserver serves the net/http/pprof handlers on a separate listener.
package pprofserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	errorsx "github.com/steviebd/swole-tracker/internal/errors"
)

const shutdownTimeout = 5 * time.Second

// Handler returns a mux with the pprof endpoints under /debug/pprof/.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	return mux
}

// Launch serves pprof on addr in the background until ctx is done. The endpoints must never be exposed publicly.
func Launch(ctx context.Context, addr string, logger *slog.Logger) {
	srv := &http.Server{ //nolint:exhaustruct // profiling requests are long running.
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogAttrs(shutdownCtx, slog.LevelError, "failed to shut down pprof server",
				errorsx.SlogError(errorsx.Wrap(err, "shutdown pprof server")))
		}
	}()

	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server failed",
				errorsx.SlogError(errorsx.Wrap(err, "serve pprof")))
		}
	}()
}
