// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when a request times out.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/steviebd/swole-tracker/internal/errors"
)

const (
	minAge   = 5 * time.Minute
	maxBytes = 64 << 20
	cooldown = 30 * time.Minute
)

// Recorder captures traces of slow requests, at most one per cooldown period.
type Recorder struct {
	logger *slog.Logger
	fr     *trace.FlightRecorder
	dir    string
	// lastCapture is the Unix time of the last written trace.
	lastCapture atomic.Int64
	now         func() time.Time
}

// New creates a recorder writing into dir, which is created when missing.
func New(logger *slog.Logger, dir string) (*Recorder, error) {
	if stat, err := os.Stat(dir); err != nil {
		if err = os.MkdirAll(dir, 0o700); err != nil { //nolint:mnd // owner only.
			return nil, errors.Wrap(err, "create traces directory")
		}
	} else if !stat.IsDir() {
		return nil, errors.New("traces path is not a directory", slog.String("dir", dir))
	}

	return &Recorder{
		logger: logger,
		fr: trace.NewFlightRecorder(trace.FlightRecorderConfig{
			MinAge:   minAge,
			MaxBytes: maxBytes,
		}),
		dir:         dir,
		lastCapture: atomic.Int64{},
		now:         time.Now,
	}, nil
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.fr.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.Duration("min_age", minAge), slog.Duration("cooldown", cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.fr.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// CaptureTimeout writes the recorded trace unless one was written during the cooldown period.
func (r *Recorder) CaptureTimeout(ctx context.Context) {
	now := r.now()
	last := r.lastCapture.Load()
	if last > 0 && now.Sub(time.Unix(last, 0)) < cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture due to cooldown",
			slog.Time("last_capture", time.Unix(last, 0)))
		return
	}
	if !r.lastCapture.CompareAndSwap(last, now.Unix()) {
		return
	}

	path := filepath.Join(r.dir, fmt.Sprintf("timeout-%s.trace", now.UTC().Format("20060102-150405")))
	n, err := r.write(path)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture timeout trace", errors.SlogError(err))
		return
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured timeout trace",
		slog.String("file", path), slog.Int64("bytes", n))
}

func (r *Recorder) write(path string) (_ int64, err error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close trace file"))
		}
	}()

	n, err := r.fr.WriteTo(file)
	if err != nil {
		return n, errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return n, nil
}
