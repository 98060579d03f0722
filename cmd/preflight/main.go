// preflight exercises every upstream dependency once and reports what a
// deployment would actually serve: live CMS endpoints, media resolution,
// CRM credentials, channels and labels. Run it after pointing the config at
// a new install, before putting the API in front of traffic.
package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"palmera_listings/internal/adapters/cms"
	"palmera_listings/internal/adapters/crm"
	"palmera_listings/internal/adapters/observability"
	"palmera_listings/internal/app"
	"palmera_listings/internal/cache"
	"palmera_listings/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("cms", cfg.CMSBase).
		Str("crm", cfg.CRMBase).
		Msg("preflight starting")

	cmsClient := cms.New(cfg.CMSBase, cfg.CMSRPS, cfg.ImageBatchSize, cfg.ImageBatchPause, cfg.HTTPTimeout)
	crmClient, err := crm.New(cfg.CRMBase, cfg.CRMCompany, cfg.CRMToken, cfg.CRMUserID, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize CRM client")
	}

	catalog := app.NewCatalogService(cmsClient, crmClient, cache.New(time.Now), cfg.CatalogTTL, cfg.ZonesTTL, cfg.BlogTTL)

	checks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"property catalog", func(ctx context.Context) error {
			items, _, err := catalog.Properties(ctx)
			if err != nil {
				return err
			}
			withMedia := 0
			for _, p := range items {
				if len(p.Media) > 0 {
					withMedia++
				}
			}
			log.Info().Int("properties", len(items)).Int("with_media", withMedia).Msg("catalog ok")
			return nil
		}},
		{"zones", func(ctx context.Context) error {
			items, _, err := catalog.Zones(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("zones", len(items)).Msg("zones ok")
			return nil
		}},
		{"blog", func(ctx context.Context) error {
			items, _, err := catalog.Blog(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("posts", len(items)).Msg("blog ok")
			return nil
		}},
		{"crm property search", func(ctx context.Context) error {
			recs, err := crmClient.SearchProperties(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("crm_properties", len(recs)).Msg("crm property search ok")
			return nil
		}},
		{"crm channels", func(ctx context.Context) error {
			chs, err := crmClient.ListChannels(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("channels", len(chs)).Msg("crm channels ok")
			return nil
		}},
		{"crm labels", func(ctx context.Context) error {
			labels, err := crmClient.ListLabels(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("labels", len(labels)).Msg("crm labels ok")
			return nil
		}},
	}

	sem := semaphore.NewWeighted(int64(cfg.WarmWorkers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := false

	for _, c := range checks {
		c := c

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := c.run(ctx); err != nil {
				log.Error().Str("check", c.name).Err(err).Msg("preflight check failed")
				mu.Lock()
				failed = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	if failed {
		log.Fatal().Msg("preflight finished with failures")
	}
	log.Info().Msg("preflight ok")
}
