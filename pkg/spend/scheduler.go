package spend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RolloverScheduler runs period rollovers on a cron schedule. The
// default schedule checks once per day just after midnight, which is
// sufficient because period bounds are day-aligned.
type RolloverScheduler struct {
	manager  *Manager
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

// DefaultRolloverSchedule checks for due rollovers at five past
// midnight every day.
const DefaultRolloverSchedule = "5 0 * * *"

// NewRolloverScheduler creates a scheduler for the manager. An empty
// schedule uses the default.
func NewRolloverScheduler(manager *Manager, schedule string, logger *slog.Logger) (*RolloverScheduler, error) {
	if schedule == "" {
		schedule = DefaultRolloverSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &RolloverScheduler{
		manager:  manager,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid rollover schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running rollovers on the schedule.
func (s *RolloverScheduler) Start() {
	s.cron.Start()
	s.logger.Info("rollover scheduler started", "schedule", s.schedule)
}

// Stop stops the scheduler and waits for a running rollover to finish.
func (s *RolloverScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("rollover scheduler stopped")
}

// run executes one rollover sweep.
func (s *RolloverScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rolled, err := s.manager.RolloverDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("rollover sweep failed", "error", err)
		return
	}
	if len(rolled) > 0 {
		s.logger.Info("rollover sweep completed", "rolled", rolled)
	}
}
