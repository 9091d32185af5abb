package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"solar-estimate/config"
	"solar-estimate/db/cache"
	"solar-estimate/db/clickhouse"
	"solar-estimate/decision/estimation"
	"solar-estimate/decision/geo"
	"solar-estimate/pkg/platform"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg    *config.Config
	engine *estimation.Engine
	store  *clickhouse.Store // nil unless ClickHouse is enabled

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// wire builds the engine from configuration. Provider adapters are only
// attached when their credentials are present.
func wire(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var benchmarks estimation.BenchmarkSource = clickhouse.DefaultStaticBenchmarks()
	if cfg.ClickHouse.Enabled {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
		benchmarks = store
	}

	c, err := buildCache(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine := estimation.NewEngine(cfg.Assumptions).
		WithTimeout(cfg.Providers.Timeout).
		WithBenchmarks(benchmarks)

	httpClient := platform.NewHTTPClient(cfg.Providers.Retries, cfg.Providers.Timeout)

	geocoder, err := buildGeocoder(ctx, cfg, httpClient)
	if err != nil {
		a.Close()
		return nil, err
	}
	if geocoder != nil {
		if c != nil {
			geocoder = geo.NewCachedGeocoder(geocoder, c, cfg.Cache.TTL).WithTimeout(cfg.Providers.Timeout)
		}
		engine.WithGeocoder(geocoder)
	}

	if key := cfg.Providers.GoogleSolarAPIKey; key != "" {
		var solar geo.SolarPotentialProvider = geo.NewGoogleSolarClient(key, httpClient).
			WithRequiredQuality(cfg.Providers.SolarQuality)
		if c != nil {
			solar = geo.NewCachedSolar(solar, c, cfg.Cache.TTL).WithTimeout(cfg.Providers.Timeout)
		}
		engine.WithSolarProvider(solar)
	}

	a.engine = engine
	return a, nil
}

func openStore(cfg *config.Config) (*clickhouse.Store, error) {
	chCfg := cfg.ClickHouse.Config
	store, err := clickhouse.NewStore(&chCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return store, nil
}

func buildCache(ctx context.Context, cfg *config.Config, a *app) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheRedis:
		rc := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.Prefix)
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		a.closers = append(a.closers, rc.Close)
		return rc, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

func buildGeocoder(ctx context.Context, cfg *config.Config, httpClient *platform.HTTPClient) (geo.Geocoder, error) {
	switch cfg.Providers.Geocoder {
	case config.GeocoderAWS:
		if cfg.Providers.AWSPlaceIndex == "" {
			return nil, nil
		}
		g, err := geo.NewAWSLocationGeocoder(ctx, cfg.Providers.AWSRegion, cfg.Providers.AWSPlaceIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to configure Amazon Location: %w", err)
		}
		return g, nil
	default:
		if cfg.Providers.GoogleMapsAPIKey == "" {
			return nil, nil
		}
		return geo.NewGoogleGeocoder(cfg.Providers.GoogleMapsAPIKey, httpClient), nil
	}
}
