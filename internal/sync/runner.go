package sync

import (
	"context"
	"time"

	"tg-coursesync/internal/logger"
)

// Runner drives the engine on two cadences: frequent incremental passes and
// occasional full passes. Passes never overlap.
type Runner struct {
	engine       *Engine
	interval     time.Duration
	fullInterval time.Duration
}

func NewRunner(engine *Engine, interval, fullInterval time.Duration) *Runner {
	return &Runner{
		engine:       engine,
		interval:     interval,
		fullInterval: fullInterval,
	}
}

// Run blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastSync, lastFullSync time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			full := now.Sub(lastFullSync) >= r.fullInterval
			if !full && now.Sub(lastSync) < r.interval {
				continue
			}

			if err := r.engine.Sync(ctx, full); err != nil && ctx.Err() == nil {
				logger.Errorf("Sync pass failed: %v", err)
			}

			lastSync = time.Now()
			if full {
				lastFullSync = lastSync
			}
		}
	}
}
