package providers

import (
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/cache"
	"github.com/sunijk/sunij-currencyconversionapi/fetchers"
	"github.com/sunijk/sunij-currencyconversionapi/resilience"
	"github.com/sunijk/sunij-currencyconversionapi/services"
)

const frankfurterTarget = "frankfurter"

// NewFrankfurter composes fetcher, resilience policy, cache and service.
func NewFrankfurter(options Options) (currency.Provider, error) {
	logger := options.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	policyConfig := options.Resilience
	if policyConfig == (resilience.Config{}) {
		policyConfig = resilience.DefaultConfig(frankfurterTarget)
	}

	if policyConfig.Name == "" {
		policyConfig.Name = frankfurterTarget
	}

	if err := policyConfig.Validate(); err != nil {
		return nil, err
	}

	fetcher, err := fetchers.NewRateFetcher(currency.FrankfurterProvider, fetchers.FrankfurterConfig{
		BaseConfig: fetchers.BaseConfig{
			URL:     options.URL,
			Timeout: options.Timeout,
		},
		Client: options.Client,
		Policy: resilience.New(policyConfig, log.With(logger, "component", "resilience")),
		Logger: log.With(logger, "component", "fetcher"),
	})
	if err != nil {
		return nil, err
	}

	_ = level.Debug(logger).Log(
		"msg", "building provider",
		"target", policyConfig.Name,
		"excluded", strings.Join(options.Excluded.Codes(), ","),
		"single_flight", options.SingleFlight,
	)

	rateCache := options.Cache
	if rateCache == nil {
		rateCache = cache.NewMemory()
	}

	service := services.NewExchangeRateService(services.ExchangeRateConfig{
		Fetcher:      fetcher,
		Cache:        rateCache,
		TTL:          options.CacheTTL,
		Excluded:     options.Excluded,
		SingleFlight: options.SingleFlight,
		Logger:       log.With(logger, "component", "service"),
	})

	return services.NewLoggingProvider(log.With(logger, "component", "provider"), service), nil
}
