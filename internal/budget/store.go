package budget

import (
	"database/sql"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS download_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	provider TEXT NOT NULL,
	records INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_download_usage_timestamp ON download_usage(timestamp);
`

type Store struct {
	db       *sql.DB
	timezone *time.Location
	now      func() time.Time
}

func NewStore(db *sql.DB, timezone *time.Location) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	tz := timezone
	if tz == nil {
		tz = time.UTC
	}

	return &Store{db: db, timezone: tz, now: time.Now}, nil
}

func (s *Store) Record(provider string, records int) error {
	_, err := s.db.Exec(
		`INSERT INTO download_usage (timestamp, provider, records) VALUES (?, ?, ?)`,
		s.now().Unix(),
		provider,
		records,
	)

	return err
}

type Summary struct {
	Requests int
	Records  int
}

func (s *Store) SummaryRange(from, to time.Time) (*Summary, error) {
	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(records), 0)
		FROM download_usage
		WHERE timestamp >= ? AND timestamp < ?
	`, from.Unix(), to.Unix())

	var sum Summary
	if err := row.Scan(&sum.Requests, &sum.Records); err != nil {
		return nil, err
	}

	return &sum, nil
}

func (s *Store) Today() (*Summary, error) {
	now := s.now().In(s.timezone)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.timezone)
	end := start.AddDate(0, 0, 1)

	return s.SummaryRange(start, end)
}

func (s *Store) TodayRecords() (int, error) {
	sum, err := s.Today()
	if err != nil {
		return 0, err
	}
	return sum.Records, nil
}
