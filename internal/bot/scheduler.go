package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires the daily dispatch at a fixed wall-clock time.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
}

// NewScheduler registers d.SendDaily to run every day at hour:minute in
// the dispatcher's zone.
func NewScheduler(d *Dispatcher, hour, minute int, logger *slog.Logger) (*Scheduler, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid dispatch time %02d:%02d", hour, minute)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(d.Location())),
		spec:   fmt.Sprintf("%d %d * * *", minute, hour),
		logger: logger,
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		logger.Info("daily dispatch triggered", slog.Time("at", time.Now().In(d.Location())))
		d.SendDaily(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule daily dispatch: %w", err)
	}

	return s, nil
}

// Spec is the cron expression of the daily job.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Next is the next time the job fires, or zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("spec", s.spec), slog.Time("next", s.Next()))
}

// Stop halts the scheduler and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
