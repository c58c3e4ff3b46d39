package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic work.
type Task func(context.Context) error

// SchedulerConfig configures the cron scheduler.
type SchedulerConfig struct {
	Location *time.Location
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Scheduler runs named tasks on cron expressions evaluated in a fixed location.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	names   map[cron.EntryID]string
}

// NewScheduler builds a scheduler. Expressions use the standard five field syntax.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(cfg.Location)),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		names:   make(map[cron.EntryID]string),
	}
}

// Register schedules task under name.
func (s *Scheduler) Register(name, spec string, task Task) error {
	if task == nil {
		return fmt.Errorf("job %s: nil task", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("job %s: parse schedule %q: %w", name, spec, err)
	}
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	s.logger.Sugar().Infow("job registered", "job", name, "schedule", spec)
	return nil
}

// Start begins dispatching. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	s.logger.Sugar().Infow("scheduler started", "jobs", len(s.names))
}

// Stop halts dispatching and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Sugar().Infow("scheduler stopped")
}

// Next reports when the named job fires next. The zero time is returned for unknown jobs or a stopped scheduler.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.cron.Entries() {
		if s.names[entry.ID] == name {
			return entry.Next
		}
	}
	return time.Time{}
}

func (s *Scheduler) run(name string, task Task) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Sugar().Errorw("job failed", "job", name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Sugar().Debugw("job finished", "job", name, "duration", time.Since(start))
}
