// Package scheduler triggers automatic mailbox scans on a cron schedule for
// every unit that has auto-scan enabled.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/internal/units"
	"github.com/contador-app/contador/pkg/lifecycle"
)

type scanStarter interface {
	Start(ctx context.Context, unitID uuid.UUID) (uuid.UUID, error)
}

type autoScanLister interface {
	ListAutoScan(ctx context.Context) ([]units.Unit, error)
}

// Scheduler runs the periodic auto-scan trigger.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.SchedulerConfig
	units  autoScanLister
	scans  scanStarter
	logger *slog.Logger
}

// New creates a Scheduler. It does nothing until Start is called.
func New(
	cfg *config.SchedulerConfig,
	units autoScanLister,
	scans scanStarter,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		cfg:    cfg,
		units:  units,
		scans:  scans,
		logger: logger.With("system", "scheduler"),
	}
}

// Start registers the cron entry and binds the scheduler to the process
// lifecycle. A disabled scheduler registers nothing.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}

	ctx := lc.Context()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.trigger(ctx) }); err != nil {
		return err
	}

	lc.OnStartup(func() {
		s.cron.Start()
		s.logger.Info("scheduler started", "schedule", s.cfg.Schedule)
	})

	lc.OnShutdown(func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.logger.Info("scheduler stopped")
	})

	return nil
}

func (s *Scheduler) trigger(ctx context.Context) {
	list, err := s.units.ListAutoScan(ctx)
	if err != nil {
		s.logger.Error("auto-scan listing failed", "error", err)
		return
	}

	s.logger.Info("auto-scan tick", "units", len(list))

	for _, unit := range list {
		jobID, err := s.scans.Start(ctx, unit.ID)
		if err != nil {
			s.logger.Error("auto-scan start failed", "unit", unit.ID, "error", err)
			continue
		}
		s.logger.Info("auto-scan started", "unit", unit.ID, "job", jobID)
	}
}
