// Package memprobe samples process memory for search diagnostics. Values
// are approximate and platform dependent; they are telemetry, not a metric
// anything should depend on.
package memprobe

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/bowerhall/roster/internal/logger"
)

type Probe interface {
	// Current returns the resident set size in bytes.
	Current() uint64
	// Peak returns the highest resident set size seen for this process.
	Peak() uint64
}

// Noop is used where process memory cannot be read.
type Noop struct{}

func (Noop) Current() uint64 { return 0 }

func (Noop) Peak() uint64 { return 0 }

// Process reads the current process through gopsutil. gopsutil leaves the
// high-water mark empty on Linux, so Peak also asks the kernel for the
// lifetime peak (getrusage) and keeps the highest RSS observed.
type Process struct {
	proc *process.Process

	mu   sync.Mutex
	last uint64
	max  uint64
}

func NewProcess() (*Process, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Process{proc: proc}, nil
}

// New returns a process probe, or Noop when the platform has no support.
func New() Probe {
	p, err := NewProcess()
	if err != nil {
		logger.Warn("process memory unavailable, using no-op probe", "error", err)
		return Noop{}
	}
	return p
}

func (p *Process) Current() uint64 {
	info, err := p.proc.MemoryInfo()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		logger.Debug("memory sample failed", "error", err)
		return p.last
	}

	p.observe(info.RSS, max(info.HWM, lifetimePeak()))
	return info.RSS
}

func (p *Process) Peak() uint64 {
	info, err := p.proc.MemoryInfo()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		logger.Debug("memory sample failed", "error", err)
		p.max = max(p.max, lifetimePeak())
		return p.max
	}

	p.observe(info.RSS, max(info.HWM, lifetimePeak()))
	return p.max
}

// must hold lock
func (p *Process) observe(rss, hwm uint64) {
	p.last = rss
	p.max = max(p.max, rss, hwm)
}
