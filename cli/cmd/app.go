package cmd

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/cache"
	"github.com/sunijk/sunij-currencyconversionapi/config"
	"github.com/sunijk/sunij-currencyconversionapi/providers"
	"github.com/sunijk/sunij-currencyconversionapi/services"
	"github.com/sunijk/sunij-currencyconversionapi/storage"
)

type (
	App struct {
		Provider currency.Provider
		Archive  services.ArchiveService
		Storages []currency.Storage
		Bases    []string
	}

	// Builder wires an App from the loaded configuration. The returned
	// function releases every connection the App holds.
	Builder func(ctx context.Context, c config.Config, logger log.Logger) (*App, func(), error)
)

func Build(ctx context.Context, c config.Config, logger log.Logger) (*App, func(), error) {
	closers := make([]func() error, 0, len(c.Storage)+1)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				_ = level.Error(logger).Log("msg", "closing resource", "err", err)
			}
		}
	}

	var rateCache currency.RateCache = cache.NewMemory()

	if c.Cache.Driver == config.RedisCache {
		redisCache, err := cache.NewRedisFromConfig(ctx, c.Cache.Redis)
		if err != nil {
			return nil, nil, err
		}

		closers = append(closers, redisCache.Close)
		rateCache = redisCache
	}

	provider, err := providers.DefaultRegistry().Resolve(c.Provider, providers.Options{
		URL:          c.Upstream.URL,
		Timeout:      c.Upstream.Timeout,
		Cache:        rateCache,
		CacheTTL:     c.Cache.TTL,
		SingleFlight: c.Cache.SingleFlight,
		Excluded:     c.Excluded(),
		Resilience:   c.Resilience,
		Logger:       logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	storages := make([]currency.Storage, 0, len(c.Storage))

	for _, s := range c.Storage {
		st, err := storage.NewStorage(ctx, s, c.StorageConfig(s))
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		closers = append(closers, st.Close)
		storages = append(storages, st)
	}

	providerName, err := currency.ConvertToProviderFromString(c.Provider)
	if err != nil {
		providerName = currency.ProviderName(c.Provider)
	}

	app := &App{
		Provider: provider,
		Archive: services.ArchiveService{
			Provider:     provider,
			Storage:      storages,
			ProviderName: providerName,
		},
		Storages: storages,
		Bases:    c.Bases,
	}

	return app, cleanup, nil
}
