// Package scheduler runs named background jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Job is one unit of periodic work, e.g. a reconciliation pass.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function into a Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (f JobFunc) Name() string                  { return f.JobName }
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// JobConfig controls how often a job runs and how long a run may take.
type JobConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	// RunOnStart triggers a first run immediately instead of after Interval
	RunOnStart bool
}

// JobStatus is a snapshot of a registered job
type JobStatus struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	Running    bool          `json:"running"`
	Runs       int64         `json:"runs"`
	Skipped    int64         `json:"skipped"`
	Failures   int64         `json:"failures"`
	LastRunAt  time.Time     `json:"last_run_at,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	LastTookMS int64         `json:"last_took_ms"`
}

type entry struct {
	job     Job
	cfg     JobConfig
	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
	fails   atomic.Int64

	mu        sync.Mutex
	lastRunAt time.Time
	lastErr   string
	lastTook  time.Duration
}

// Scheduler owns one ticker goroutine per registered job. A tick that fires
// while the previous run of the same job is still executing is skipped.
// Overlap across processes is handled by the jobs themselves.
type Scheduler struct {
	logger *zap.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	order     []string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// New creates an empty Scheduler
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Register adds job. It must be called before Start.
func (s *Scheduler) Register(job Job, cfg JobConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("%w: job %s interval must be positive", ErrInvalidConfig, job.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("%w: duplicate job %s", ErrInvalidConfig, job.Name())
	}
	s.entries[job.Name()] = &entry{job: job, cfg: cfg}
	s.order = append(s.order, job.Name())
	return nil
}

// Start launches the job loops
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, name := range s.order {
		e := s.entries[name]
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("scheduler started", zap.Strings("jobs", s.order))
	return nil
}

// Stop cancels the loops and waits for in-flight runs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs the named job synchronously, honouring the overlap guard.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	ran, err := s.execute(ctx, e)
	if !ran {
		return ErrJobBusy
	}
	return err
}

// Status returns a snapshot of every job in registration order
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		e := s.entries[name]
		e.mu.Lock()
		out = append(out, JobStatus{
			Name:       name,
			Interval:   e.cfg.Interval,
			Running:    e.running.Load(),
			Runs:       e.runs.Load(),
			Skipped:    e.skipped.Load(),
			Failures:   e.fails.Load(),
			LastRunAt:  e.lastRunAt,
			LastError:  e.lastErr,
			LastTookMS: e.lastTook.Milliseconds(),
		})
		e.mu.Unlock()
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if e.cfg.RunOnStart {
		s.execute(ctx, e)
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ran, _ := s.execute(ctx, e); !ran {
				s.logger.Debug("previous run still executing, tick skipped", zap.String("job", e.job.Name()))
			}
		}
	}
}

// execute runs e once unless a run is already in flight. It reports whether
// the job ran and the error of that run.
func (s *Scheduler) execute(ctx context.Context, e *entry) (bool, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.skipped.Add(1)
		return false, nil
	}
	defer e.running.Store(false)

	name := e.job.Name()
	runCtx, log := logger.WithWorker(ctx, s.logger, name)
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, e.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	err := s.safeRun(runCtx, e.job)
	took := time.Since(started)

	e.runs.Add(1)
	e.mu.Lock()
	e.lastRunAt = started.UTC()
	e.lastTook = took
	e.lastErr = ""
	if err != nil {
		e.lastErr = err.Error()
	}
	e.mu.Unlock()

	if err != nil {
		e.fails.Add(1)
		log.Error("job failed", zap.Duration("took", took), zap.Error(err))
	} else {
		log.Debug("job finished", zap.Duration("took", took))
	}
	return true, err
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}
