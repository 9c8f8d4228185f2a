// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name       string
	Interval   time.Duration
	Timeout    time.Duration // per run; 0 means Interval
	RunAtStart bool
	Run        func(ctx context.Context) error
}

// Runner runs each registered Job on its own ticker until Stop.
type Runner struct {
	log  *zap.Logger
	jobs []Job

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates an empty runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{log: logger}
}

// Add registers j. Jobs added after Start are ignored.
func (r *Runner) Add(j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		r.log.Warn("task added after start, ignored", zap.String("job", j.Name))
		return
	}
	r.jobs = append(r.jobs, j)
}

// Jobs returns the registered job names.
func (r *Runner) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		names[i] = j.Name
	}
	return names
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	for _, j := range r.jobs {
		if j.Interval <= 0 || j.Run == nil {
			r.log.Warn("task skipped, no interval or run func", zap.String("job", j.Name))
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
	r.log.Info("task runner started", zap.Int("jobs", len(r.jobs)))
}

// Stop cancels running jobs and waits for their goroutines.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.log.Info("task runner stopped")
}

func (r *Runner) loop(ctx context.Context, j Job) {
	defer r.wg.Done()

	if j.RunAtStart {
		r.runOnce(ctx, j)
	}
	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.runOnce(ctx, j)
		}
	}
}

func (r *Runner) runOnce(parent context.Context, j Job) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = j.Interval
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		if parent.Err() != nil {
			return
		}
		r.log.Error("task failed", zap.String("job", j.Name), zap.Error(err))
		return
	}
	r.log.Debug("task finished", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
}
