package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const defaultRecentLimit = 10

// BuildRun records one dataset generation.
type BuildRun struct {
	ID        string
	Requested int
	Received  int
	Elapsed   time.Duration
	Error     string
	CreatedAt time.Time
}

// SearchRun records one search and the telemetry it reported.
type SearchRun struct {
	ID          string
	Target      int
	Found       bool
	Comparisons int
	DatasetSize int
	Elapsed     time.Duration
	MemBefore   uint64
	MemAfter    uint64
	MemPeak     uint64
	CreatedAt   time.Time
}

type Stats struct {
	Searches       int
	Found          int
	AvgComparisons float64
	Builds         int
	FailedBuilds   int
}

// Store keeps build and search history in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS build_runs (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    requested INTEGER NOT NULL,
    received INTEGER NOT NULL,
    elapsed_ns INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS search_runs (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    target INTEGER NOT NULL,
    found INTEGER NOT NULL,
    comparisons INTEGER NOT NULL,
    dataset_size INTEGER NOT NULL,
    elapsed_ns INTEGER NOT NULL,
    mem_before INTEGER NOT NULL,
    mem_after INTEGER NOT NULL,
    mem_peak INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
`

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewStore creates a history store using the provided database connection
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// DB returns the underlying connection for stores sharing the history file.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordBuild(run BuildRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO build_runs (id, requested, received, elapsed_ns, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Requested, run.Received, int64(run.Elapsed), run.Error, run.CreatedAt.Unix())
	if err != nil {
		return "", err
	}

	return run.ID, nil
}

func (s *Store) RecordSearch(run SearchRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO search_runs (id, target, found, comparisons, dataset_size, elapsed_ns,
			mem_before, mem_after, mem_peak, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Target, run.Found, run.Comparisons, run.DatasetSize, int64(run.Elapsed),
		int64(run.MemBefore), int64(run.MemAfter), int64(run.MemPeak), run.CreatedAt.Unix())
	if err != nil {
		return "", err
	}

	return run.ID, nil
}

// RecentSearches returns the latest searches, newest first.
func (s *Store) RecentSearches(limit int) ([]SearchRun, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.Query(`
		SELECT id, target, found, comparisons, dataset_size, elapsed_ns,
			mem_before, mem_after, mem_peak, created_at
		FROM search_runs
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SearchRun
	for rows.Next() {
		var r SearchRun
		var elapsed, before, after, peak, created int64

		if err := rows.Scan(&r.ID, &r.Target, &r.Found, &r.Comparisons, &r.DatasetSize, &elapsed,
			&before, &after, &peak, &created); err != nil {
			return nil, err
		}

		r.Elapsed = time.Duration(elapsed)
		r.MemBefore = uint64(before)
		r.MemAfter = uint64(after)
		r.MemPeak = uint64(peak)
		r.CreatedAt = time.Unix(created, 0)

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// RecentBuilds returns the latest builds, newest first.
func (s *Store) RecentBuilds(limit int) ([]BuildRun, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.Query(`
		SELECT id, requested, received, elapsed_ns, error, created_at
		FROM build_runs
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []BuildRun
	for rows.Next() {
		var r BuildRun
		var elapsed, created int64

		if err := rows.Scan(&r.ID, &r.Requested, &r.Received, &elapsed, &r.Error, &created); err != nil {
			return nil, err
		}

		r.Elapsed = time.Duration(elapsed)
		r.CreatedAt = time.Unix(created, 0)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func (s *Store) Stats() (Stats, error) {
	var st Stats

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(found), 0), COALESCE(AVG(comparisons), 0)
		FROM search_runs`).Scan(&st.Searches, &st.Found, &st.AvgComparisons)
	if err != nil {
		return st, err
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0)
		FROM build_runs`).Scan(&st.Builds, &st.FailedBuilds)
	if err != nil {
		return st, err
	}

	return st, nil
}
