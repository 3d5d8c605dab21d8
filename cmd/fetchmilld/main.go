package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"fetchmill/internal/config"
	"fetchmill/internal/convert"
	"fetchmill/internal/daemon"
	"fetchmill/internal/history"
	"fetchmill/internal/logging"
	"fetchmill/internal/preflight"
	"fetchmill/internal/runner"
	"fetchmill/internal/task"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Optional .env next to the working directory; absence is fine.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(os.Getenv("FETCHMILL_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "fetchmilld.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	results := preflight.RunAll(cfg)
	for _, result := range results {
		attrs := logging.Args(
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.String("detail", result.Detail))
		if result.Passed {
			logger.Info("preflight", attrs...)
		} else {
			logger.Warn("preflight", attrs...)
		}
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		logger.Error("preflight checks failed; refusing to start")
		os.Exit(1)
	}

	var archive *history.Store
	if cfg.History.Enabled {
		archive, err = history.Open(cfg)
		if err != nil {
			logger.Error("open history store", logging.Error(err))
			os.Exit(1)
		}
	}

	client, err := runner.New(cfg.Tools.ConverterBinary, cfg.Paths.ScratchDir, logger,
		runner.WithTimeout(cfg.ConvertTimeout()),
		runner.WithMaxCapture(cfg.MaxCaptureBytes()))
	if err != nil {
		logger.Error("init runner", logging.Error(err))
		os.Exit(1)
	}

	var archiver convert.Archiver
	if archive != nil {
		archiver = archive
	}
	orchestrator, err := convert.New(cfg, task.NewRegistry(), client, archiver, logger)
	if err != nil {
		logger.Error("init orchestrator", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(cfg, orchestrator, archive, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("daemon close", logging.Error(err))
		}
	}()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("fetchmilld shutting down")
}
