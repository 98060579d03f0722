package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Warmer pre-populates the aggregation caches so no visitor pays first-fetch
// latency, then keeps them warm on a cron schedule. Refresh failures are
// already absorbed by the store's stale-on-failure behavior, so the warm loop
// only logs.
type Warmer struct {
	catalog *CatalogService
	sched   *cron.Cron
	spec    string
}

func NewWarmer(catalog *CatalogService, spec string) *Warmer {
	return &Warmer{catalog: catalog, sched: cron.New(), spec: spec}
}

// Start warms once synchronously, then schedules periodic re-warms.
func (w *Warmer) Start(ctx context.Context) error {
	w.warm(ctx)
	if _, err := w.sched.AddFunc(w.spec, func() { w.warm(context.Background()) }); err != nil {
		return err
	}
	w.sched.Start()
	return nil
}

func (w *Warmer) Stop() { w.sched.Stop() }

func (w *Warmer) warm(ctx context.Context) {
	if _, _, err := w.catalog.Properties(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog warm failed")
	}
	if _, _, err := w.catalog.Zones(ctx); err != nil {
		log.Warn().Err(err).Msg("zones warm failed")
	}
	if _, _, err := w.catalog.Blog(ctx); err != nil {
		log.Warn().Err(err).Msg("blog warm failed")
	}
}
