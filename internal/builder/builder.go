package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
	"github.com/bowerhall/roster/internal/source"
)

const defaultMaxShortPages = 3

type Config struct {
	// MaxShortPages is how many consecutive short or empty pages are
	// tolerated before the build fails with ErrInsufficientData.
	MaxShortPages int
	// PageTimeout bounds each page request. Zero means no timeout.
	PageTimeout time.Duration
	Policy      source.Policy
}

type ProgressFunc func(fetched, target int)

// Builder assembles a dataset from a paginated source, numbering records
// 1..N regardless of how the source splits them into pages.
type Builder struct {
	src           source.Source
	policy        source.Policy
	maxShortPages int
	pageTimeout   time.Duration
	onProgress    ProgressFunc
}

func New(src source.Source, cfg Config) *Builder {
	maxShort := cfg.MaxShortPages
	if maxShort <= 0 {
		maxShort = defaultMaxShortPages
	}

	policy := cfg.Policy
	if policy == nil {
		policy = source.SingleAttempt{}
	}

	return &Builder{
		src:           src,
		policy:        policy,
		maxShortPages: maxShort,
		pageTimeout:   cfg.PageTimeout,
	}
}

// OnProgress registers a callback invoked after every page.
func (b *Builder) OnProgress(fn ProgressFunc) {
	b.onProgress = fn
}

// Build fetches target records. The returned dataset always has exactly
// target records with codes 1..target, or an error and no dataset.
func (b *Builder) Build(ctx context.Context, target int) (person.Dataset, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: record count must be positive, got %d", person.ErrInvalidArgument, target)
	}

	maxBatch := b.src.MaxBatch()
	if maxBatch <= 0 {
		return nil, fmt.Errorf("%w: source batch limit must be positive, got %d", person.ErrInvalidArgument, maxBatch)
	}

	if r, ok := b.src.(source.Rewinder); ok {
		r.Rewind()
	}

	runID := uuid.New().String()[:8]
	logger.Info("build started", "run", runID, "target", target, "max_batch", maxBatch)

	ds := make(person.Dataset, 0, target)
	fetched := 0
	short := 0
	pages := 0

	for fetched < target {
		want := min(target-fetched, maxBatch)

		page, err := b.fetch(ctx, want)
		if err != nil {
			logger.Error("page fetch failed", "run", runID, "page", pages+1, "fetched", fetched, "error", err)
			if errors.Is(err, person.ErrSourceUnavailable) || errors.Is(err, person.ErrInvalidArgument) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, err)
		}
		pages++

		if len(page) > want {
			logger.Warn("source over-delivered, truncating page", "run", runID, "requested", want, "received", len(page))
			page = page[:want]
		}

		received := 0
		for _, raw := range page {
			if err := raw.Validate(); err != nil {
				logger.Debug("dropping invalid record", "run", runID, "error", err)
				continue
			}

			ds = append(ds, person.FromRaw(raw, fetched+received+1))
			received++
		}

		fetched += received

		if received < want {
			short++
			logger.Warn("short page", "run", runID, "requested", want, "received", received, "consecutive", short)

			if short >= b.maxShortPages {
				return nil, fmt.Errorf("%w: %d consecutive short pages, got %d of %d records",
					person.ErrInsufficientData, short, fetched, target)
			}
		} else {
			short = 0
		}

		if b.onProgress != nil {
			b.onProgress(fetched, target)
		}
	}

	logger.Info("build finished", "run", runID, "records", len(ds), "pages", pages)
	return ds, nil
}

func (b *Builder) fetch(ctx context.Context, count int) ([]person.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, err)
	}

	if b.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.pageTimeout)
		defer cancel()
	}

	return b.policy.Fetch(ctx, b.src, count)
}
