// Package refresh regenerates the mock datasets and re-registers them with
// the engine, on demand or on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"duck-tables/internal/dataset"
	"duck-tables/internal/domain"
	"duck-tables/internal/mockdata"
)

// Refresher writes a new generation of mock data into Dir and loads it.
// Every refresh advances the seed, so consecutive generations differ but a
// restarted process replays the same sequence.
type Refresher struct {
	dir    string
	opts   mockdata.Options
	reg    dataset.Registrar
	logger *slog.Logger

	mu          sync.Mutex
	generation  uint64
	lastRefresh time.Time
}

// NewRefresher creates a Refresher writing into dir.
func NewRefresher(dir string, opts mockdata.Options, reg dataset.Registrar, logger *slog.Logger) *Refresher {
	return &Refresher{dir: dir, opts: opts, reg: reg, logger: logger}
}

// Refresh runs one generation. Concurrent calls are serialised.
func (r *Refresher) Refresh(ctx context.Context) (*dataset.Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := r.opts
	opts.Seed += r.generation
	start := time.Now()

	m, err := mockdata.Generate(r.dir, opts)
	if err != nil {
		return nil, fmt.Errorf("generate mock data: %w", err)
	}
	if err := dataset.RegisterAll(ctx, r.reg, m.Datasets, r.logger); err != nil {
		return nil, err
	}

	r.generation++
	r.lastRefresh = time.Now()
	r.logger.Info("mock data refreshed",
		"dir", r.dir,
		"seed", opts.Seed,
		"datasets", len(m.Datasets),
		"duration", time.Since(start),
	)
	return m, nil
}

// Generation returns how many refreshes have completed.
func (r *Refresher) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// LastRefresh returns when the last refresh completed, or the zero time.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRefresh
}

// Scheduler triggers a Refresher on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	refresher *Refresher
	logger    *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	schedule string
	entry    cron.EntryID
}

// NewScheduler creates a scheduler for r. Nothing runs until Start.
func NewScheduler(r *Refresher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		refresher: r,
		logger:    logger,
	}
}

// Start schedules refreshes on schedule and starts the cron loop. An empty
// schedule starts the loop without any entry. Scheduled runs use ctx, so
// cancelling it aborts a refresh in flight.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.Reschedule(schedule); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the cron loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("refresh scheduler stopped")
}

// Reschedule replaces the current schedule. An empty schedule removes it.
func (s *Scheduler) Reschedule(schedule string) error {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return domain.ErrValidation("invalid refresh schedule %q: %v", schedule, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.schedule = schedule
	if schedule == "" {
		return nil
	}

	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return domain.ErrValidation("invalid refresh schedule %q: %v", schedule, err)
	}
	s.entry = id
	return nil
}

// Next returns the next scheduled refresh, or the zero time when none is
// scheduled or the loop is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("scheduled refresh failed", "error", err)
	}
}
