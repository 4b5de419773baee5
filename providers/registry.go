// Package providers resolves the configured provider name to a ready to use
// currency.Provider.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/resilience"
)

type (
	Options struct {
		URL          string
		Timeout      time.Duration
		Client       *http.Client
		Cache        currency.RateCache
		CacheTTL     time.Duration
		SingleFlight bool
		Excluded     currency.ExcludedCurrencies
		Resilience   resilience.Config
		Logger       log.Logger
	}

	Factory func(options Options) (currency.Provider, error)

	Registry struct {
		mutex     sync.RWMutex
		factories map[string]registration
	}

	registration struct {
		name    currency.ProviderName
		factory Factory
	}
)

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]registration)}
}

func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(currency.FrankfurterProvider, NewFrankfurter)

	return r
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) Register(name currency.ProviderName, factory Factory) {
	r.mutex.Lock()
	r.factories[key(name.String())] = registration{name: name, factory: factory}
	r.mutex.Unlock()
}

func (r *Registry) Names() []currency.ProviderName {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]currency.ProviderName, 0, len(r.factories))
	for _, reg := range r.factories {
		names = append(names, reg.name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Resolve looks the name up ignoring case. Unknown names fail with
// currency.ErrConfiguration.
func (r *Registry) Resolve(name string, options Options) (currency.Provider, error) {
	r.mutex.RLock()
	reg, ok := r.factories[key(name)]
	r.mutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not registered, available: %v", currency.ErrConfiguration, name, r.Names())
	}

	provider, err := reg.factory(options)
	if err != nil {
		return nil, fmt.Errorf("building provider %s: %w", reg.name, err)
	}

	return provider, nil
}
