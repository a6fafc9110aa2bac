// Package main runs one pipeline pass and exits with a per-stage status code.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maauso/autoshorts/internal/bootstrap"
	"github.com/maauso/autoshorts/internal/config"
	"github.com/maauso/autoshorts/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	genre := flag.String("genre", "", "topic for the short; picked from the catalog when empty")
	privacy := flag.String("privacy", "", "privacy status override (public, unlisted, private)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		return pipeline.ExitSetup
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		return pipeline.ExitSetup
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return pipeline.ExitSetup
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting autoshorts run",
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.Any("providers", cfg.Providers()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)
	logger.Debug("configuration", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("initialize dependencies", slog.String("error", err.Error()))
		return pipeline.ExitSetup
	}

	r, res, err := deps.Service.RunSync(ctx, pipeline.Input{Genre: *genre, Privacy: *privacy})
	if err != nil {
		code := pipeline.ExitCode(err)
		attrs := []any{slog.Int("exit_code", code), slog.String("error", err.Error())}
		if r != nil {
			attrs = append(attrs, slog.String("run_id", r.ID), slog.String("failed_stage", string(r.FailedStage)))
		}
		logger.Error("run failed", attrs...)
		return code
	}

	logger.Info("run completed",
		slog.String("run_id", res.RunID),
		slog.String("genre", res.Genre),
		slog.String("title", res.Title),
		slog.String("video_id", res.VideoID),
		slog.String("url", res.VideoURL),
		slog.String("archive_url", res.ArchiveURL),
		slog.Float64("audio_seconds", res.AudioSeconds),
		slog.Int("clips", res.Clips),
		slog.Float64("speed_factor", res.SpeedFactor),
	)
	return 0
}
