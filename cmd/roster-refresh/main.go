package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bowerhall/roster/internal/app"
	"github.com/bowerhall/roster/internal/config"
	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/refresh"
	"github.com/joho/godotenv"
)

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	logger.SetDebug(cfg.Debug)

	if !cfg.Refresh.Enabled {
		logger.Fatal("ROSTER_REFRESH_SCHEDULE is not set")
	}

	hist, err := app.OpenHistory(cfg.History)
	if err != nil {
		logger.Error("history disabled", "error", err)
	}
	if hist != nil {
		defer hist.Close()
	}

	tracker, err := app.NewBudget(cfg, hist, nil)
	if err != nil {
		logger.Fatal("failed to create download budget", "error", err)
	}

	b, err := app.NewBuilder(cfg, tracker)
	if err != nil {
		logger.Fatal("failed to create builder", "error", err)
	}

	fileStore, err := app.NewStore(cfg.Data)
	if err != nil {
		logger.Fatal("failed to create data store", "error", err)
	}

	scheduler, err := refresh.New(refresh.Config{
		Schedule: cfg.Refresh.Schedule,
		Count:    cfg.Refresh.Count,
		Timeout:  cfg.Refresh.Timeout,
	}, b, fileStore)
	if err != nil {
		logger.Fatal("failed to create refresh scheduler", "error", err)
	}

	if hist != nil {
		scheduler.SetRecorder(hist)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "once" {
		if err := scheduler.RunOnce(ctx); err != nil {
			logger.Fatal("refresh failed", "error", err)
		}
		return
	}

	scheduler.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
	scheduler.Stop()
}
