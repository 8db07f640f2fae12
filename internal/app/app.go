// Package app turns a loaded config into wired components shared by the
// roster binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bowerhall/roster/internal/budget"
	"github.com/bowerhall/roster/internal/builder"
	"github.com/bowerhall/roster/internal/config"
	"github.com/bowerhall/roster/internal/history"
	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/source"
	"github.com/bowerhall/roster/internal/storage"
	"github.com/bowerhall/roster/internal/store"
)

func NewSource(cfg config.SourceConfig) (source.Source, error) {
	switch cfg.Provider {
	case "", "randomuser":
		return source.NewRandomUser(source.RandomUserConfig{
			BaseURL:   cfg.BaseURL,
			Nat:       cfg.Nat,
			Seed:      cfg.Seed,
			MaxBatch:  cfg.MaxBatch,
			RateLimit: cfg.RateLimit,
			Timeout:   cfg.Timeout,
		}), nil
	case "synthetic":
		return source.NewStatic(cfg.MaxBatch), nil
	default:
		return nil, fmt.Errorf("unknown source provider: %s", cfg.Provider)
	}
}

// NewBuilder wires the configured source into a builder. A non-nil tracker
// puts the source behind the daily download budget.
func NewBuilder(cfg *config.Config, tracker *budget.Tracker) (*builder.Builder, error) {
	src, err := NewSource(cfg.Source)
	if err != nil {
		return nil, err
	}

	if tracker != nil {
		src = budget.Guard(src, tracker, cfg.Source.Provider)
	}

	return builder.New(src, builder.Config{
		MaxShortPages: cfg.Builder.MaxShortPages,
		PageTimeout:   cfg.Builder.PageTimeout,
		Policy:        source.NewPolicy(cfg.Source.Retries, cfg.Source.RetryBackoff),
	}), nil
}

func NewStore(cfg config.DataConfig) (*store.FileStore, error) {
	codec, err := store.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	compression, err := store.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return store.NewFileStore(cfg.Path, codec, compression), nil
}

// NewBudget returns nil when the budget is disabled. Usage is persisted in
// the history database when one is open. notify may be nil.
func NewBudget(cfg *config.Config, hist *history.Store, notify func(string)) (*budget.Tracker, error) {
	if !cfg.Budget.Enabled {
		return nil, nil
	}

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	report := func(msg string) {
		logger.Warn(msg)
		if notify != nil {
			notify(msg)
		}
	}

	tracker := budget.NewTracker(budget.Config{
		DailyLimit: cfg.Budget.DailyLimit,
		WarnAt:     cfg.Budget.WarnAt,
		Timezone:   tz,
	}, func(u budget.Usage) {
		report(fmt.Sprintf("Download budget warning: %d of %d records used on %s.", u.Used, u.Limit, u.Day))
	}, func(u budget.Usage) {
		report(fmt.Sprintf("Download budget used up: %d of %d records on %s.", u.Used, u.Limit, u.Day))
	})

	if hist != nil {
		store, err := budget.NewStore(hist.DB(), tz)
		if err != nil {
			return nil, fmt.Errorf("failed to create budget store: %w", err)
		}
		tracker.SetStore(store)
	}

	u := tracker.Usage()
	logger.Debug("download budget enabled", "day", u.Day, "used", u.Used, "limit", u.Limit)

	return tracker, nil
}

// OpenHistory returns nil when history is disabled.
func OpenHistory(cfg config.HistoryConfig) (*history.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	h, err := history.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	logger.Debug("history enabled", "path", cfg.Path)
	return h, nil
}

// OpenStorage returns nil when storage is disabled or unreachable; backups are
// optional and never block startup.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) *storage.Client {
	if !cfg.Enabled {
		return nil
	}

	client, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Keep:      cfg.Keep,
	})
	if err != nil {
		logger.Error("failed to create storage client", "error", err)
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Init(initCtx); err != nil {
		logger.Error("failed to init backup bucket", "error", err)
		return nil
	}

	logger.Info("storage enabled", "endpoint", cfg.Endpoint, "bucket", client.Bucket(), "keep", cfg.Keep)
	return client
}
