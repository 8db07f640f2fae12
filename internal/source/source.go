package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
)

// Source is a paginated provider of person records. A single FetchPage call
// never asks for more than MaxBatch records.
type Source interface {
	FetchPage(ctx context.Context, count int) ([]person.Raw, error)
	MaxBatch() int
}

// Rewinder is implemented by sources whose pages depend on call order and
// must restart at the first page for a new build.
type Rewinder interface {
	Rewind()
}

// Policy decides how a single page fetch is attempted.
type Policy interface {
	Fetch(ctx context.Context, src Source, count int) ([]person.Raw, error)
}

// SingleAttempt issues exactly one request per page.
type SingleAttempt struct{}

func (SingleAttempt) Fetch(ctx context.Context, src Source, count int) ([]person.Raw, error) {
	return src.FetchPage(ctx, count)
}

// Retry re-issues a page request that failed with ErrSourceUnavailable,
// doubling Backoff between attempts. Other errors are returned immediately.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

func (r Retry) Fetch(ctx context.Context, src Source, count int) ([]person.Raw, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := r.Backoff << (i - 1)
			logger.Debug("retrying page fetch", "attempt", i+1, "wait", wait, "error", err)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}

		var page []person.Raw
		page, err = src.FetchPage(ctx, count)
		if err == nil {
			return page, nil
		}

		if !errors.Is(err, person.ErrSourceUnavailable) {
			return nil, err
		}
	}

	return nil, err
}

// NewPolicy returns SingleAttempt when retries is zero.
func NewPolicy(retries int, backoff time.Duration) Policy {
	if retries <= 0 {
		return SingleAttempt{}
	}
	return Retry{Attempts: retries + 1, Backoff: backoff}
}

func checkCount(count, max int) error {
	if count <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", person.ErrInvalidArgument, count)
	}
	if count > max {
		return fmt.Errorf("%w: page size %d exceeds provider limit %d", person.ErrInvalidArgument, count, max)
	}
	return nil
}
