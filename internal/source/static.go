package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/bowerhall/roster/internal/person"
)

var (
	firstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Felipe", "Gabriela", "Heitor", "Isabel", "João"}
	lastNames  = []string{"Silva", "Souza", "Costa", "Oliveira", "Pereira", "Lima", "Carvalho", "Ribeiro"}
	cities     = []struct{ city, state string }{
		{"Austin", "Texas"}, {"Denver", "Colorado"}, {"Portland", "Oregon"}, {"Tampa", "Florida"}, {"Boise", "Idaho"},
	}
)

// Synthetic builds a deterministic provider record for index i.
func Synthetic(i int) person.Raw {
	var raw person.Raw

	first := firstNames[i%len(firstNames)]
	last := lastNames[(i/len(firstNames))%len(lastNames)]
	place := cities[i%len(cities)]

	if i%17 != 0 {
		id := fmt.Sprintf("%03d-%02d-%04d", i%1000, i%100, i%10000)
		raw.ID.Name = "SSN"
		raw.ID.Value = &id
	}

	raw.Name.First = first
	raw.Name.Last = last
	raw.Email = fmt.Sprintf("%s.%s%d@example.com", first, last, i)
	raw.Phone = fmt.Sprintf("(555) %03d-%04d", i%1000, i%10000)
	raw.Cell = fmt.Sprintf("(555) %03d-%04d", (i+7)%1000, (i+3)%10000)
	raw.Location.City = place.city
	raw.Location.State = place.state
	raw.Location.Country = "United States"
	raw.DOB.Age = 18 + i%60
	raw.Picture.Large = fmt.Sprintf("https://randomuser.me/api/portraits/men/%d.jpg", i%100)

	return raw
}

// Static serves synthetic records from memory. Deliveries can be scripted
// per call to simulate a provider that under-delivers.
type Static struct {
	mu         sync.Mutex
	maxBatch   int
	produced   int
	deliveries []int
	calls      []int
	err        error
}

func NewStatic(maxBatch int) *Static {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Static{maxBatch: maxBatch}
}

// Script sets how many records the next calls return, in order. A negative
// entry means "as many as requested". Calls beyond the script are served in full.
func (s *Static) Script(deliveries ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append([]int(nil), deliveries...)
}

// FailWith makes every following call return err.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns the requested size of every call so far.
func (s *Static) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func (s *Static) MaxBatch() int {
	return s.maxBatch
}

func (s *Static) Rewind() {
	s.mu.Lock()
	s.produced = 0
	s.mu.Unlock()
}

func (s *Static) FetchPage(ctx context.Context, count int) ([]person.Raw, error) {
	if err := checkCount(count, s.maxBatch); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, count)

	if s.err != nil {
		return nil, s.err
	}

	n := count
	if len(s.deliveries) > 0 {
		if d := s.deliveries[0]; d >= 0 {
			n = d
		}
		s.deliveries = s.deliveries[1:]
	}

	page := make([]person.Raw, 0, n)
	for i := 0; i < n; i++ {
		page = append(page, Synthetic(s.produced))
		s.produced++
	}

	return page, nil
}
