package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/steviebd/swole-tracker/internal/coach"
	"github.com/steviebd/swole-tracker/internal/envstruct"
	"github.com/steviebd/swole-tracker/internal/errors"
	"github.com/steviebd/swole-tracker/internal/flightrecorder"
	"github.com/steviebd/swole-tracker/internal/logging"
	"github.com/steviebd/swole-tracker/internal/metrics"
	"github.com/steviebd/swole-tracker/internal/pprofserver"
	"github.com/steviebd/swole-tracker/internal/sqlite"
	"github.com/steviebd/swole-tracker/internal/workout"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	workoutService *workout.Service
	coach          *coach.Coach
	metrics        *metrics.Manager
	registry       *prometheus.Registry
	recorder       *flightrecorder.Recorder
	devLogin       bool
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"SWOLE_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"SWOLE_SQLITE_URL" envDefault:"./swole.sqlite3"`
	// OpenAIAPIKey enables model generated coach advice. Without it the coach returns the deterministic summary.
	OpenAIAPIKey string `env:"SWOLE_OPENAI_API_KEY" envDefault:""`
	// WeightIncrement is the plate increment used for users who have not chosen their own.
	WeightIncrement float64 `env:"SWOLE_WEIGHT_INCREMENT" envDefault:"2.5"`
	// PlateauThreshold is the relative change in load or reps below which two sessions count as a plateau.
	PlateauThreshold float64 `env:"SWOLE_PLATEAU_THRESHOLD" envDefault:"0.05"`
	// AchievementDedupWindow suppresses repeated achievements of the same milestone.
	AchievementDedupWindow time.Duration `env:"SWOLE_ACHIEVEMENT_DEDUP_WINDOW" envDefault:"24h"`
	// PProfAddr is the optional address to listen on for the pprof server.
	PProfAddr string `env:"SWOLE_PPROF_ADDR" envDefault:""`
	// TracesDirectory enables the flight recorder. Traces of timed out requests are written there.
	TracesDirectory string `env:"SWOLE_TRACES_DIR" envDefault:""`
	// DevLogin enables POST /api/dev/login that authenticates any user ID. Only for local development and tests.
	DevLogin bool `env:"SWOLE_DEV_LOGIN" envDefault:"false"`
	// SecureCookies should only be disabled when serving plain HTTP on localhost.
	SecureCookies bool `env:"SWOLE_SECURE_COOKIES" envDefault:"true"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if cfg.PProfAddr != "" {
		pprofserver.Launch(ctx, cfg.PProfAddr, logger)
	}

	var recorder *flightrecorder.Recorder
	if cfg.TracesDirectory != "" {
		if recorder, err = flightrecorder.New(logger, cfg.TracesDirectory); err != nil {
			return errors.Wrap(err, "new flight recorder", slog.String("dir", cfg.TracesDirectory))
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.WithoutCancel(ctx))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelError, "failed to close db",
				errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	registry := metrics.SetupPrometheus()
	engineCfg := workout.DefaultConfig()
	engineCfg.WeightIncrement = cfg.WeightIncrement
	engineCfg.PlateauThreshold = cfg.PlateauThreshold
	engineCfg.Evaluator.DedupWindow = cfg.AchievementDedupWindow
	m := metrics.NewDefaultManager(registry)

	app := application{
		logger:         logger,
		sessionManager: initializeSessionManager(db, cfg.SecureCookies),
		workoutService: workout.NewService(db, logger, engineCfg, m),
		coach:          coach.New(cfg.OpenAIAPIKey, logger),
		metrics:        m,
		registry:       registry,
		recorder:       recorder,
		devLogin:       cfg.DevLogin,
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "configured engine",
		slog.Float64("weight_increment", engineCfg.WeightIncrement),
		slog.Float64("plateau_threshold", engineCfg.PlateauThreshold),
		slog.Duration("achievement_dedup_window", engineCfg.Evaluator.DedupWindow),
		slog.Bool("coach_model", app.coach.Enabled()))

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(dbs *sqlite.Database, secureCookies bool) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = secureCookies
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
