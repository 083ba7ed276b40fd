// Package schedule runs the background sweep: reload the CSV exports
// and push fresh alerts to the webhook on a cron schedule.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/service"
)

// Scheduler periodically refreshes the transaction set and delivers
// any alerts the new data produces.
type Scheduler struct {
	svc    *service.FinanceService
	cron   *cron.Cron
	logger *zap.Logger
}

// New builds a scheduler around the finance service. Call Start to
// begin sweeping on the given cron spec.
func New(svc *service.FinanceService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		svc:    svc,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the sweep on spec and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("background sweep scheduled", zap.String("spec", spec))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := s.svc.Refresh(ctx)
	if err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err))
		return
	}

	alerts, err := s.svc.PushAlerts(ctx, analyze.Range{})
	if err != nil {
		s.logger.Error("scheduled alert push failed", zap.Error(err))
		return
	}

	s.logger.Info("sweep complete",
		zap.Int("transactions", count),
		zap.Int("alerts", len(alerts)),
	)
}
