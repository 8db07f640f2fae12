package budget

import (
	"context"
	"fmt"

	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
	"github.com/bowerhall/roster/internal/source"
)

// GuardedSource refuses pages that would go over the daily budget and
// records every page it lets through.
type GuardedSource struct {
	src      source.Source
	tracker  *Tracker
	provider string
}

func Guard(src source.Source, tracker *Tracker, provider string) *GuardedSource {
	return &GuardedSource{src: src, tracker: tracker, provider: provider}
}

func (g *GuardedSource) MaxBatch() int {
	return g.src.MaxBatch()
}

func (g *GuardedSource) Rewind() {
	if r, ok := g.src.(source.Rewinder); ok {
		r.Rewind()
	}
}

func (g *GuardedSource) FetchPage(ctx context.Context, count int) ([]person.Raw, error) {
	if _, err := g.tracker.Allow(count); err != nil {
		return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, err)
	}

	page, err := g.src.FetchPage(ctx, count)
	if err != nil {
		return nil, err
	}

	left := g.tracker.Record(g.provider, len(page))
	logger.Debug("budget: page counted", "provider", g.provider, "records", len(page), "remaining", left)
	return page, nil
}
