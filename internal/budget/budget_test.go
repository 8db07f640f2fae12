package budget

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/bowerhall/roster/internal/person"
	"github.com/bowerhall/roster/internal/source"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, time.UTC)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestTrackerAllowAndRecord(t *testing.T) {
	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, nil, nil)

	remaining, err := tracker.Allow(500)
	if err != nil || remaining != 1000 {
		t.Fatalf("Allow(500) = %d, %v", remaining, err)
	}

	if left := tracker.Record("randomuser", 500); left != 500 {
		t.Errorf("expected 500 left after recording, got %d", left)
	}

	u := tracker.Usage()
	if u.Used != 500 || u.Limit != 1000 || u.Remaining != 500 {
		t.Errorf("unexpected usage %+v", u)
	}

	remaining, err = tracker.Allow(501)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted for 501 of 500, got %v", err)
	}
	if remaining != 500 {
		t.Errorf("refused Allow should still report 500 left, got %d", remaining)
	}

	if _, err := tracker.Allow(500); err != nil {
		t.Errorf("exactly the remaining records should fit: %v", err)
	}
}

func TestTrackerExhausted(t *testing.T) {
	var got []Usage
	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, nil, func(u Usage) {
		got = append(got, u)
	})

	tracker.Record("randomuser", 500)
	if left := tracker.Record("randomuser", 600); left != 0 {
		t.Errorf("expected nothing left, got %d", left)
	}
	tracker.Record("randomuser", 10)

	if len(got) != 1 {
		t.Fatalf("expected one exhausted notice, got %d", len(got))
	}
	if got[0].Used != 1100 || got[0].Remaining != 0 {
		t.Errorf("unexpected exhausted usage %+v", got[0])
	}
	if _, err := tracker.Allow(1); !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestTrackerWarnOnlyOnce(t *testing.T) {
	warnCount := 0
	tracker := NewTracker(Config{DailyLimit: 1000, WarnAt: 0.8}, func(u Usage) {
		warnCount++
	}, nil)

	tracker.Record("randomuser", 700)
	if warnCount != 0 {
		t.Error("expected no warning at 70%")
	}

	tracker.Record("randomuser", 100)
	tracker.Record("randomuser", 50)
	tracker.Record("randomuser", 50)

	if warnCount != 1 {
		t.Errorf("expected warning to be called once, got %d", warnCount)
	}
}

func TestTrackerResetsDaily(t *testing.T) {
	tz := time.FixedZone("UTC-3", -3*3600)
	tracker := NewTracker(Config{DailyLimit: 100, WarnAt: 0.8, Timezone: tz}, nil, nil)

	// 01:30 UTC is still the previous day three hours west
	now := time.Date(2026, 5, 2, 1, 30, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	tracker.Record("randomuser", 90)

	if u := tracker.Usage(); u.Day != "2026-05-01" || u.Used != 90 {
		t.Errorf("unexpected usage before midnight: %+v", u)
	}

	now = now.Add(time.Hour)
	u := tracker.Usage()
	if u.Day != "2026-05-01" || u.Used != 90 {
		t.Errorf("usage reset before local midnight: %+v", u)
	}

	now = now.Add(time.Hour)
	u = tracker.Usage()
	if u.Day != "2026-05-02" || u.Used != 0 || u.Remaining != 100 {
		t.Errorf("expected usage reset on a new day, got %+v", u)
	}
}

func TestTrackerRecordPersists(t *testing.T) {
	store := openStore(t)

	tracker := NewTracker(Config{DailyLimit: 10000, WarnAt: 0.8}, nil, nil)
	tracker.SetStore(store)

	if left := tracker.Record("randomuser", 1100); left != 8900 {
		t.Errorf("expected 8900 left, got %d", left)
	}

	records, err := store.TodayRecords()
	if err != nil {
		t.Fatalf("failed to get today records: %v", err)
	}
	if records != 1100 {
		t.Errorf("expected 1100 records in store, got %d", records)
	}

	// a new tracker on the same store resumes today's usage
	resumed := NewTracker(Config{DailyLimit: 10000, WarnAt: 0.8}, nil, nil)
	resumed.SetStore(store)
	if u := resumed.Usage(); u.Used != 1100 {
		t.Errorf("expected resumed usage 1100, got %d", u.Used)
	}
}

func TestStoreSummary(t *testing.T) {
	store := openStore(t)

	store.Record("randomuser", 5000)
	store.Record("randomuser", 5000)
	store.Record("synthetic", 20)

	summary, err := store.Today()
	if err != nil {
		t.Fatalf("failed to get today summary: %v", err)
	}
	if summary.Requests != 3 {
		t.Errorf("expected 3 requests, got %d", summary.Requests)
	}
	if summary.Records != 10020 {
		t.Errorf("expected 10020 records, got %d", summary.Records)
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	old, err := store.SummaryRange(yesterday.Add(-time.Hour), yesterday)
	if err != nil {
		t.Fatalf("SummaryRange: %v", err)
	}
	if old.Requests != 0 {
		t.Errorf("expected nothing yesterday, got %d", old.Requests)
	}
}

func TestGuardedSource(t *testing.T) {
	src := source.NewStatic(10)
	tracker := NewTracker(Config{DailyLimit: 25, WarnAt: 0.8}, nil, nil)
	guarded := Guard(src, tracker, "synthetic")

	if guarded.MaxBatch() != 10 {
		t.Errorf("MaxBatch() = %d, want 10", guarded.MaxBatch())
	}

	for range 2 {
		page, err := guarded.FetchPage(context.Background(), 10)
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		if len(page) != 10 {
			t.Fatalf("expected 10 records, got %d", len(page))
		}
	}

	_, err := guarded.FetchPage(context.Background(), 10)
	if !errors.Is(err, person.ErrSourceUnavailable) || !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrSourceUnavailable and ErrExhausted once budget is spent, got %v", err)
	}
	if calls := src.Calls(); len(calls) != 2 {
		t.Errorf("refused page should not reach the source, calls = %v", calls)
	}

	page, err := guarded.FetchPage(context.Background(), 5)
	if err != nil || len(page) != 5 {
		t.Fatalf("expected the last 5 records to fit, got %d, %v", len(page), err)
	}
}
