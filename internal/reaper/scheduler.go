package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
)

// Scheduler runs reaper passes periodically.
type Scheduler struct {
	scheduler gocron.Scheduler
	reaper    *Reaper
	ctx       context.Context
	onPass    func(*Report, error)
}

// NewScheduler creates a scheduler for r.
func NewScheduler(r *Reaper) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryInternal, "create scheduler").Build()
	}
	return &Scheduler{scheduler: s, reaper: r}, nil
}

// OnPass registers a callback invoked after every pass.
func (s *Scheduler) OnPass(fn func(*Report, error)) { s.onPass = fn }

// Every schedules a pass each interval, the first one immediately. Passes never
// overlap; a pass still running when the next is due delays it.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", derrors.ConfigError("reaper interval must be positive").Build()
	}
	s.ctx = ctx
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.execute),
		gocron.WithName("reap-drafts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryInternal, "create reaper job").Build()
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting reaper scheduler")
	s.scheduler.Start()
}

// Stop shuts down the scheduler, waiting for a running pass.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping reaper scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) execute() {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	report, err := s.reaper.Run(s.ctx)
	if err != nil {
		slog.Error("Reaper pass failed", logfields.Error(err), logfields.Duration(time.Since(start)))
	}
	if s.onPass != nil {
		s.onPass(report, err)
	}
}
