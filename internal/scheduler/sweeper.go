package scheduler

import (
	"context"
	"time"

	leadssvc "leadmarket_backend/internal/leads/service"
	"leadmarket_backend/platform/logger"
)

const defaultSweepInterval = 10 * time.Minute

// ExpirySweeper periodically converts direct leads whose privacy window has
// closed and expires leads past their outer bound. Every pass is idempotent,
// so overlapping deployments or a missed tick are harmless.
type ExpirySweeper struct {
	leads    *leadssvc.Service
	log      *logger.Logger
	interval time.Duration
}

func NewExpirySweeper(leads *leadssvc.Service, log *logger.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{
		leads:    leads,
		log:      log,
		interval: interval,
	}
}

// Run blocks until the context is cancelled, sweeping once immediately and
// then on every tick.
func (s *ExpirySweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	result, err := s.leads.RunExpirySweep(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err)
		return
	}
	s.log.SweepResult("lead expiry", result.Converted, result.Expired, result.Failed)
}
