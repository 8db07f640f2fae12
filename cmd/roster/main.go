package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bowerhall/roster/internal/app"
	"github.com/bowerhall/roster/internal/config"
	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/memprobe"
	"github.com/bowerhall/roster/internal/menu"
	"github.com/bowerhall/roster/internal/search"
	"github.com/bowerhall/roster/internal/session"
	"github.com/bowerhall/roster/internal/watch"
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

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Fatal("failed to open log file", "path", cfg.LogFile, "error", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileStore, err := app.NewStore(cfg.Data)
	if err != nil {
		logger.Fatal("failed to create data store", "error", err)
	}

	hist, err := app.OpenHistory(cfg.History)
	if err != nil {
		logger.Error("history disabled", "error", err)
	}
	if hist != nil {
		defer hist.Close()
	}

	// budget notices go to the menu once it exists
	var m *menu.Menu
	tracker, err := app.NewBudget(cfg, hist, func(msg string) {
		if m != nil {
			m.Notify(msg)
		}
	})
	if err != nil {
		logger.Fatal("failed to create download budget", "error", err)
	}

	b, err := app.NewBuilder(cfg, tracker)
	if err != nil {
		logger.Fatal("failed to create builder", "error", err)
	}

	deps := menu.Deps{
		Session: session.New(),
		Builder: b,
		Store:   fileStore,
		Engine:  search.New(memprobe.New()),
	}
	if hist != nil {
		deps.History = hist
	}

	if client := app.OpenStorage(ctx, cfg.Storage); client != nil {
		deps.Backup = client
	}

	m = menu.New(os.Stdin, os.Stdout, deps)

	watcher, err := watch.New(fileStore.Path())
	if err != nil {
		logger.Warn("file watcher unavailable", "error", err)
	} else {
		defer watcher.Stop()

		events, err := watcher.Watch(ctx)
		if err != nil {
			logger.Warn("file watcher unavailable", "error", err)
		} else {
			go func() {
				for ev := range events {
					m.FileChanged(ev)
				}
			}()
		}
	}

	// first interrupt cancels a running build, a second one exits
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		signal.Stop(sigCh)
		cancel()
		m.Notify("Interrupted. Press Enter to exit.")
	}()

	logger.Debug("roster started", "data", fileStore.Path(), "source", cfg.Source.Provider)

	if err := m.Run(ctx); err != nil {
		logger.Fatal("menu failed", "error", err)
	}
}
