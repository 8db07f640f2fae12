package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
)

const (
	DefaultBaseURL  = "https://randomuser.me/api/"
	DefaultMaxBatch = 5000
)

type RandomUserConfig struct {
	BaseURL   string
	Nat       string
	Seed      string
	MaxBatch  int
	RateLimit float64 // requests per second, <= 0 disables limiting
	Timeout   time.Duration
	Client    *http.Client
}

// RandomUser fetches pages from a randomuser.me compatible endpoint.
type RandomUser struct {
	baseURL  string
	nat      string
	seed     string
	maxBatch int
	limiter  *rate.Limiter
	client   *http.Client

	// records delivered since the last Rewind; drives seeded paging
	mu     sync.Mutex
	offset int
}

type randomUserResponse struct {
	Results []person.Raw `json:"results"`
	Error   string       `json:"error"`
	Info    struct {
		Seed    string `json:"seed"`
		Results int    `json:"results"`
		Page    int    `json:"page"`
	} `json:"info"`
}

func NewRandomUser(cfg RandomUserConfig) *RandomUser {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &RandomUser{
		baseURL:  baseURL,
		nat:      cfg.Nat,
		seed:     cfg.Seed,
		maxBatch: maxBatch,
		limiter:  limiter,
		client:   client,
	}
}

func (r *RandomUser) MaxBatch() int {
	return r.maxBatch
}

// Rewind restarts seeded paging at the first record.
func (r *RandomUser) Rewind() {
	r.mu.Lock()
	r.offset = 0
	r.mu.Unlock()
}

func (r *RandomUser) FetchPage(ctx context.Context, count int) ([]person.Raw, error) {
	if err := checkCount(count, r.maxBatch); err != nil {
		return nil, err
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", person.ErrSourceUnavailable, err)
		}
	}

	r.mu.Lock()
	offset := r.offset
	r.mu.Unlock()

	reqURL, skip, err := r.pageURL(count, offset)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", person.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", person.ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", person.ErrSourceUnavailable, resp.StatusCode, truncate(string(body), 200))
	}

	var page randomUserResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: decode page: %w", person.ErrSourceUnavailable, err)
	}

	if page.Error != "" {
		return nil, fmt.Errorf("%w: provider error: %s", person.ErrSourceUnavailable, page.Error)
	}

	results := page.Results
	if r.seed != "" {
		results = results[min(skip, len(results)):]
		results = results[:min(count, len(results))]

		r.mu.Lock()
		r.offset = offset + len(results)
		r.mu.Unlock()
	}

	logger.Debug("page fetched", "requested", count, "received", len(results), "page", page.Info.Page)

	return results, nil
}

// pageURL builds the request for count records. With a seed, the request
// is placed at offset in the provider's seeded sequence and skip tells how
// many leading records of the response belong to earlier pages.
func (r *RandomUser) pageURL(count, offset int) (string, int, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", 0, fmt.Errorf("%w: base url: %w", person.ErrInvalidArgument, err)
	}

	q := u.Query()
	q.Set("results", strconv.Itoa(count))
	if r.nat != "" {
		q.Set("nat", r.nat)
	}

	var skip int
	if r.seed != "" {
		var size, page int
		size, page, skip = seededWindow(offset, count, r.maxBatch)

		q.Set("results", strconv.Itoa(size))
		q.Set("seed", r.seed)
		q.Set("page", strconv.Itoa(page))
	}

	u.RawQuery = q.Encode()
	return u.String(), skip, nil
}

// seededWindow maps records [offset, offset+count) onto seeded pages, where
// page p of size n holds records (p-1)*n through p*n-1. When offset is not a
// multiple of count it falls back to maxBatch sized pages; the window may
// then end at the page boundary and come back short.
func seededWindow(offset, count, maxBatch int) (size, page, skip int) {
	if offset%count == 0 {
		return count, offset/count + 1, 0
	}
	return maxBatch, offset/maxBatch + 1, offset % maxBatch
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
