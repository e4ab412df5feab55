package scheduler

import (
	"context"
	"time"

	"studio_sales_backend/platform/logger"
)

// TickerSweep runs the hold sweep in-process. Used when Redis is not
// configured, so only one instance should run it.
type TickerSweep struct {
	sweeper  Sweeper
	interval time.Duration
	log      *logger.Logger
}

func NewTickerSweep(sweeper Sweeper, interval time.Duration, log *logger.Logger) *TickerSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &TickerSweep{sweeper: sweeper, interval: interval, log: log}
}

func (t *TickerSweep) Run(ctx context.Context) {
	if t == nil || t.sweeper == nil {
		return
	}

	_ = runSweep(ctx, t.sweeper, t.log, "startup")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = runSweep(ctx, t.sweeper, t.log, "tick")
		}
	}
}
