package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bowerhall/roster/internal/memprobe"
	"github.com/bowerhall/roster/internal/person"
)

// Result is produced by one search and is not persisted.
type Result struct {
	Target      int
	Record      *person.Record
	Comparisons int
	Elapsed     time.Duration
	DatasetSize int

	// Memory samples are diagnostics only; see memprobe.
	MemBefore uint64
	MemAfter  uint64
	MemPeak   uint64
}

func (r Result) Found() bool {
	return r.Record != nil
}

// Engine runs an instrumented linear scan.
type Engine struct {
	probe memprobe.Probe
}

func New(probe memprobe.Probe) *Engine {
	if probe == nil {
		probe = memprobe.Noop{}
	}
	return &Engine{probe: probe}
}

// ParseCode parses user input into a sequence code.
func ParseCode(input string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer code", person.ErrInvalidArgument, input)
	}
	return code, nil
}

// Lookup parses input and searches for it. Invalid input is rejected before
// the dataset is touched.
func (e *Engine) Lookup(ds person.Dataset, input string) (Result, error) {
	code, err := ParseCode(input)
	if err != nil {
		return Result{}, err
	}
	return e.Search(ds, code), nil
}

// Search scans ds in stored order and stops at the first record whose code
// equals target. Elapsed covers the scan loop only.
func (e *Engine) Search(ds person.Dataset, target int) Result {
	res := Result{Target: target, DatasetSize: len(ds)}

	res.MemBefore = e.probe.Current()

	start := time.Now()
	for i := range ds {
		res.Comparisons++
		if ds[i].Code == target {
			res.Record = &ds[i]
			break
		}
	}
	res.Elapsed = time.Since(start)

	res.MemAfter = e.probe.Current()
	res.MemPeak = e.probe.Peak()

	return res
}
