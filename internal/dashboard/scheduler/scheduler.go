// Package scheduler runs the periodic maintenance jobs of the dashboard.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/metrics"

	"github.com/robfig/cron/v3"
)

// JobFunc is one run of a job.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. Runs of the same job never overlap and a
// panicking job is recovered.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  logger.Logger

	mu   sync.Mutex
	jobs map[string]JobFunc
}

func New(log logger.Logger) *Scheduler {
	log = log.WithComponent("scheduler")
	cl := cronLogger{log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		ctx:     ctx,
		cancel:  cancel,
		timeout: 10 * time.Minute,
		logger:  log,
		jobs:    make(map[string]JobFunc),
	}
}

// Add registers fn under name on a standard cron spec or a descriptor such
// as @hourly.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	if _, dup := s.jobs[name]; dup {
		s.mu.Unlock()
		return fmt.Errorf("job %q already registered", name)
	}
	s.jobs[name] = fn
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(s.ctx, name, fn) }); err != nil {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()
		return fmt.Errorf("job %q: invalid schedule %q: %w", name, spec, err)
	}
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.run(ctx, name, fn)
}

func (s *Scheduler) run(ctx context.Context, name string, fn JobFunc) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.JobRun(name, err)
	log := s.logger.WithFields(map[string]interface{}{"job": name, "duration_ms": time.Since(start).Milliseconds()})
	if err != nil {
		log.WithFields(map[string]interface{}{"error": err.Error()}).Error("job failed")
		return err
	}
	log.Debug("job finished")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infof("scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kv(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kv(keysAndValues)
	fields["error"] = err.Error()
	l.log.WithFields(fields).Error(msg)
}

func kv(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
