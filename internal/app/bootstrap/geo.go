package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	appconfig "github.com/wolfman30/agency-backoffice/internal/config"
	"github.com/wolfman30/agency-backoffice/internal/geo"
	"github.com/wolfman30/agency-backoffice/internal/observability/metrics"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// BuildLocator wires the configured geolocation providers. The Redis IP
// cache is attached only when a client is available.
func BuildLocator(cfg *appconfig.Config, redisClient *redis.Client, m *metrics.PipelineMetrics, logger *logging.Logger) (*geo.Locator, error) {
	providers, err := geo.ProvidersByName(cfg.GeoProviders, &http.Client{Timeout: cfg.GeoProviderTimeout})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: geo providers: %w", err)
	}
	opts := geo.Options{
		ProviderTimeout: cfg.GeoProviderTimeout,
		BlockedAgents:   cfg.GeoBlockedAgents,
		Metrics:         m,
	}
	if redisClient != nil {
		opts.IPCache = geo.NewRedisCache(redisClient, cfg.GeoIPCacheTTL)
	}
	return geo.NewLocator(providers, opts, logger), nil
}
