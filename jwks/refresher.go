package jwks

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher keeps the cache warm on a cron schedule (e.g. "@every 5m"). It only replaces
// the snapshot; on-demand staleness and refetch rules still apply to every lookup.
type Refresher struct {
	cron     *cron.Cron
	resolver *Resolver
	log      logrus.FieldLogger
}

// NewRefresher schedules resolver.Refresh according to the cron schedule.
func NewRefresher(resolver *Resolver, schedule string) (*Refresher, error) {
	f := &Refresher{
		cron:     cron.New(),
		resolver: resolver,
		log:      resolver.log,
	}
	if _, err := f.cron.AddFunc(schedule, f.run); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), f.resolver.timeout)
	defer cancel()
	if _, err := f.resolver.Refresh(ctx); err != nil {
		f.log.WithError(err).Warn("jwks: scheduled refresh failed")
	}
}

// Start runs the schedule in the background.
func (f *Refresher) Start() { f.cron.Start() }

// Stop halts the schedule; the returned context is done once a running refresh finishes.
func (f *Refresher) Stop() context.Context { return f.cron.Stop() }
