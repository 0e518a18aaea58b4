// Package scheduler drives the periodic snapshot refresh: on each tick the
// artifact store drops its cache and re-checks durable storage, so a model
// retrained elsewhere is picked up without a restart.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/retailpulse/churnrisk/pkg/artifacts"
	"github.com/retailpulse/churnrisk/utils"
)

// Refresher schedules cache refreshes of the artifact store.
type Refresher struct {
	store    *artifacts.Store
	schedule string
	cron     *cron.Cron
	logger   *utils.ComponentLogger
}

// NewRefresher creates a refresher with a cron schedule spec, e.g.
// "@every 1h" or "0 3 * * *".
func NewRefresher(store *artifacts.Store, schedule string) *Refresher {
	return &Refresher{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   utils.GetLogger().WithComponent("refresher"),
	}
}

// Start registers the refresh job and begins the cron loop.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		r.logger.Info("scheduled snapshot refresh", utils.String("schedule", r.schedule))
		if _, err := r.store.Refresh(ctx); err != nil {
			r.logger.Error("snapshot refresh failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the cron loop, waiting for a running refresh to finish.
func (r *Refresher) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
}
