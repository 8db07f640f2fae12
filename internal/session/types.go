package session

import (
	"sync"

	"github.com/bowerhall/roster/internal/person"
)

// Loader reads a complete dataset, e.g. a store.FileStore.
type Loader interface {
	Load() (person.Dataset, error)
}

// Session owns the single active dataset. Searches borrow it read-only and
// loads replace it wholesale.
type Session struct {
	mu      sync.RWMutex
	dataset person.Dataset
	loaded  bool
}
