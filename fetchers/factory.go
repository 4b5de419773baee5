package fetchers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/log"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

const DefaultTimeout = 10 * time.Second

type (
	BaseConfig struct {
		URL     string
		Timeout time.Duration
	}

	FrankfurterConfig struct {
		BaseConfig
		Client *http.Client
		Policy Executor
		Logger log.Logger
	}
)

func NewRateFetcher(provider currency.ProviderName, config interface{}) (currency.Fetcher, error) {
	switch provider {
	case currency.FrankfurterProvider:
		c, ok := config.(FrankfurterConfig)
		if !ok {
			return nil, fmt.Errorf("%w: %s fetcher needs FrankfurterConfig, got %T", currency.ErrConfiguration, provider, config)
		}

		return NewFrankfurterFetcher(c), nil
	}

	return nil, fmt.Errorf("%w: no fetcher for provider %q", currency.ErrConfiguration, provider)
}
