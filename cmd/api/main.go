package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"palmera_listings/internal/adapters/cms"
	"palmera_listings/internal/adapters/crm"
	server "palmera_listings/internal/adapters/http_server"
	"palmera_listings/internal/adapters/observability"
	"palmera_listings/internal/app"
	"palmera_listings/internal/cache"
	"palmera_listings/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	cmsClient := cms.New(cfg.CMSBase, cfg.CMSRPS, cfg.ImageBatchSize, cfg.ImageBatchPause, cfg.HTTPTimeout)
	crmClient, err := crm.New(cfg.CRMBase, cfg.CRMCompany, cfg.CRMToken, cfg.CRMUserID, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize CRM client")
	}

	store := cache.New(time.Now)
	catalog := app.NewCatalogService(cmsClient, crmClient, store, cfg.CatalogTTL, cfg.ZonesTTL, cfg.BlogTTL)
	leads := app.NewLeadService(crmClient)

	warmer := app.NewWarmer(catalog, cfg.WarmCron)
	if err := warmer.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.WarmCron).Msg("cache warmer failed to start")
	}
	defer warmer.Stop()

	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Catalog: catalog, Leads: leads})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
