package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	CMSBase string
	CMSRPS  int

	CRMBase    string
	CRMCompany string
	CRMToken   string
	CRMUserID  int64

	ImageBatchSize  int
	ImageBatchPause time.Duration
	HTTPTimeout     time.Duration

	CatalogTTL time.Duration
	ZonesTTL   time.Duration
	BlogTTL    time.Duration

	WarmWorkers int
	WarmCron    string
}

func Load() Config {
	// optional; real deployments set env directly
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	secs := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Second
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ""),
		CMSBase:         env("CMS_BASE_URL", "https://content.palmeralistings.co/wp-json"),
		CMSRPS:          atoi("CMS_RPS", 5),
		CRMBase:         env("CRM_BASE_URL", "https://api.crm.palmeralistings.co/v1"),
		CRMCompany:      env("CRM_COMPANY_ID", ""),
		CRMToken:        env("CRM_API_TOKEN", ""),
		CRMUserID:       int64(atoi("CRM_DEFAULT_USER_ID", 1)),
		ImageBatchSize:  atoi("IMAGE_BATCH_SIZE", 5),
		ImageBatchPause: time.Duration(atoi("IMAGE_BATCH_PAUSE_MS", 250)) * time.Millisecond,
		HTTPTimeout:     secs("HTTP_TIMEOUT_SECONDS", 20),
		CatalogTTL:      secs("CATALOG_TTL_SECONDS", 30*60),
		ZonesTTL:        secs("ZONES_TTL_SECONDS", 60*60),
		BlogTTL:         secs("BLOG_TTL_SECONDS", 2*24*3600),
		WarmWorkers:     atoi("WARM_WORKERS", 3),
		WarmCron:        env("WARM_CRON", "@every 15m"),
	}
	if c.CRMToken == "" {
		log.Warn().Msg("CRM_API_TOKEN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
