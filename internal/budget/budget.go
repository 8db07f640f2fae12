// Package budget caps how many records may be downloaded from a remote
// source per calendar day.
package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bowerhall/roster/internal/logger"
)

const dayLayout = "2006-01-02"

var ErrExhausted = errors.New("daily download budget exhausted")

// Usage is a snapshot of one budget day.
type Usage struct {
	Day       string // 2006-01-02 in the tracker's timezone
	Used      int
	Limit     int
	Remaining int
}

type Config struct {
	DailyLimit int
	WarnAt     float64
	Timezone   *time.Location
}

// Tracker counts downloaded records against a daily limit. The day rolls
// over at midnight in the configured timezone.
type Tracker struct {
	mu        sync.Mutex
	limit     int
	warnAt    float64
	day       string
	used      int
	warned    bool
	exhausted bool
	tz        *time.Location
	store     *Store
	now       func() time.Time

	onWarn      func(Usage)
	onExhausted func(Usage)
}

func NewTracker(cfg Config, onWarn, onExhausted func(Usage)) *Tracker {
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}

	return &Tracker{
		limit:       cfg.DailyLimit,
		warnAt:      cfg.WarnAt,
		tz:          tz,
		now:         time.Now,
		onWarn:      onWarn,
		onExhausted: onExhausted,
	}
}

// SetStore persists future downloads to s and resumes today's usage from it.
func (t *Tracker) SetStore(s *Store) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = s
	if s == nil {
		return
	}

	records, err := s.TodayRecords()
	if err != nil {
		logger.Warn("budget: failed to read today's usage", "error", err)
		return
	}

	t.roll()
	t.used = records
	t.warned = t.overWarn()
	t.exhausted = t.used >= t.limit
}

// Allow returns how many records may still be downloaded today. It fails
// with ErrExhausted when count does not fit.
func (t *Tracker) Allow(count int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.roll()
	remaining := t.remaining()
	if count > remaining {
		return remaining, fmt.Errorf("%w: %d of %d records used on %s, %d requested",
			ErrExhausted, t.used, t.limit, t.day, count)
	}
	return remaining, nil
}

// Record adds n downloaded records to today's total, persists them and
// returns how many are left.
func (t *Tracker) Record(provider string, n int) int {
	t.mu.Lock()
	t.roll()
	t.used += n

	var notify func(Usage)
	switch {
	case !t.exhausted && t.used >= t.limit:
		t.exhausted = true
		t.warned = true
		notify = t.onExhausted
	case !t.warned && t.overWarn():
		t.warned = true
		notify = t.onWarn
	}

	store := t.store
	u := t.usage()
	t.mu.Unlock()

	if store != nil {
		if err := store.Record(provider, n); err != nil {
			// usage tracking never fails a build
			logger.Warn("budget: failed to record usage", "error", err)
		}
	}

	if notify != nil {
		notify(u)
	}

	return u.Remaining
}

func (t *Tracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.roll()
	return t.usage()
}

// must hold lock
func (t *Tracker) roll() {
	day := t.now().In(t.tz).Format(dayLayout)
	if day != t.day {
		t.day = day
		t.used = 0
		t.warned = false
		t.exhausted = false
	}
}

func (t *Tracker) usage() Usage {
	return Usage{Day: t.day, Used: t.used, Limit: t.limit, Remaining: t.remaining()}
}

func (t *Tracker) remaining() int {
	return max(t.limit-t.used, 0)
}

func (t *Tracker) overWarn() bool {
	return float64(t.used) >= float64(t.limit)*t.warnAt
}
