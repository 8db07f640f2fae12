package session

import (
	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
)

func New() *Session {
	return &Session{}
}

// Replace swaps in ds as the active dataset.
func (s *Session) Replace(ds person.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataset = ds
	s.loaded = true
}

// Dataset returns the active dataset and whether one has been loaded. The
// slice must be treated as read-only.
func (s *Session) Dataset() (person.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dataset, s.loaded
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.dataset)
}

// Load reads from l and replaces the active dataset only when the read
// succeeds. On error the previous dataset stays active.
func (s *Session) Load(l Loader) (int, error) {
	ds, err := l.Load()
	if err != nil {
		logger.Warn("load failed, keeping current dataset", "error", err, "current", s.Len())
		return 0, err
	}

	s.Replace(ds)
	return len(ds), nil
}
