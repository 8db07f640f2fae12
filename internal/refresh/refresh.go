package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bowerhall/roster/internal/history"
	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
)

// cronParser is configured for standard 5-field cron expressions
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Builder interface {
	Build(ctx context.Context, target int) (person.Dataset, error)
}

type Saver interface {
	Save(ds person.Dataset) error
}

type Recorder interface {
	RecordBuild(run history.BuildRun) (string, error)
}

type Config struct {
	Schedule string
	Count    int
	// Timeout bounds a whole build+save run. Zero means no timeout.
	Timeout time.Duration
}

// Scheduler regenerates the data file on a cron schedule.
type Scheduler struct {
	builder  Builder
	saver    Saver
	recorder Recorder
	count    int
	timeout  time.Duration
	schedule cron.Schedule
	spec     string
	cron     *cron.Cron
}

func New(cfg Config, b Builder, s Saver) (*Scheduler, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("%w: refresh count must be positive, got %d", person.ErrInvalidArgument, cfg.Count)
	}

	sched, err := cronParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule: %w", err)
	}

	return &Scheduler{
		builder:  b,
		saver:    s,
		count:    cfg.Count,
		timeout:  cfg.Timeout,
		schedule: sched,
		spec:     cfg.Schedule,
	}, nil
}

// SetRecorder records every run in the build history.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.recorder = r
}

// Next returns the next fire time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// RunOnce builds and saves a fresh dataset. The file is only written when
// the build succeeds.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	ds, err := s.builder.Build(ctx, s.count)
	if err == nil {
		err = s.saver.Save(ds)
	}

	s.record(len(ds), time.Since(start), err)

	if err != nil {
		logger.Error("refresh failed", "count", s.count, "error", err)
		return err
	}

	logger.Info("refresh complete", "records", len(ds), "elapsed", time.Since(start))
	return nil
}

func (s *Scheduler) record(received int, elapsed time.Duration, err error) {
	if s.recorder == nil {
		return
	}

	run := history.BuildRun{Requested: s.count, Received: received, Elapsed: elapsed}
	if err != nil {
		run.Error = err.Error()
	}

	if _, rerr := s.recorder.RecordBuild(run); rerr != nil {
		logger.Warn("failed to record refresh", "error", rerr)
	}
}

// Start runs RunOnce on every tick until ctx is done or Stop is called.
// A tick that fires while the previous run is still going is skipped.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.RunOnce(ctx); err != nil {
			logger.Debug("scheduled refresh returned error", "error", err)
		}
	}))

	s.cron.Start()
	logger.Info("refresh scheduler started", "schedule", s.spec, "count", s.count, "next", s.Next(time.Now()))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
