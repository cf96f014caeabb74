package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/e7canasta/camsens/internal/command"
	"github.com/e7canasta/camsens/internal/config"
	"github.com/e7canasta/camsens/internal/core"
)

const usage = `camsens records up to two cameras and logs per-second motion.

Keys (followed by Enter):
  r      start recording
  m      start motion sensing (while recording)
  q/ESC  stop

`

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: built-in defaults)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	dryRun := flag.Bool("dry-run", false, "Use synthetic cameras and discard video output")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	setupLogger(*logFormat, *debug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting camsens",
		"config", *configPath,
		"debug", *debug,
		"dry_run", *dryRun,
		"mode", cfg.Motion.Mode,
		"window", cfg.Window.Duration,
		"session_cap", cfg.Window.SessionCap,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := core.NewCamsens(cfg, core.Options{DryRun: *dryRun})

	// SIGINT/SIGTERM become a Stop command so the session closes its files
	// the same way as a key press.
	_, runErr := svc.Run(ctx,
		command.ReadKeys(ctx, os.Stdin),
		command.FromSignals(ctx),
	)
	if runErr != nil {
		slog.Error("session failed", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
	slog.Info("camsens stopped successfully")
}

func setupLogger(format string, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		})
	}
	slog.SetDefault(slog.New(handler))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
