package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/steviebd/swole-tracker/internal/e2etest"
	"github.com/steviebd/swole-tracker/internal/logging"
	"github.com/steviebd/swole-tracker/internal/testhelpers"
	"github.com/steviebd/swole-tracker/internal/workout"
)

const smokeUserID = 1

// TestAPI checks the public endpoints. With devLogin it also reads the forecasts of a throwaway user, which needs
// a server running with SWOLE_DEV_LOGIN=true.
func TestAPI(client *e2etest.Client, devLogin bool) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if status, _ := client.JSON(ctx, http.MethodGet, "/api/forecasts", nil, nil); status != http.StatusUnauthorized {
		return fmt.Errorf("anonymous forecasts returned %d, want %d", status, http.StatusUnauthorized)
	}
	if !devLogin {
		return nil
	}

	if err := client.Login(ctx, smokeUserID); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	var forecasts workout.ForecastResult
	if _, err := client.JSON(ctx, http.MethodGet, "/api/forecasts", nil, &forecasts); err != nil {
		return fmt.Errorf("list forecasts: %w", err)
	}
	if err := client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) < 2 || len(os.Args) > 3 { //nolint:mnd // hostname and optional -dev-login.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname> [-dev-login]")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		devLogin = len(os.Args) == 3 && os.Args[2] == "-dev-login" //nolint:mnd // optional flag.
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestAPI(client, devLogin); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing api", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
