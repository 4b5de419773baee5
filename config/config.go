// Package config reads the process configuration once at startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/cache"
	"github.com/sunijk/sunij-currencyconversionapi/fetchers"
	"github.com/sunijk/sunij-currencyconversionapi/resilience"
	"github.com/sunijk/sunij-currencyconversionapi/services"
	"github.com/sunijk/sunij-currencyconversionapi/storage"
)

const EnvPrefix = "CURRENCY"

type (
	CacheDriver string

	UpstreamConfig struct {
		URL     string
		Timeout time.Duration
	}

	CacheConfig struct {
		Driver       CacheDriver
		TTL          time.Duration
		SingleFlight bool
		Redis        cache.RedisConfig
	}

	Config struct {
		Provider           string
		Upstream           UpstreamConfig
		ExcludedCurrencies []string
		Cache              CacheConfig
		Resilience         resilience.Config
		Storage            []storage.Provider
		MySQL              storage.MySQLConfig
		MongoDB            storage.MongoDBConfig
		Bases              []string
	}
)

const (
	MemoryCache CacheDriver = "memory"
	RedisCache  CacheDriver = "redis"
)

func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", strings.ToLower(currency.FrankfurterProvider.String()))
	v.SetDefault("upstream.url", fetchers.FrankfurterURL)
	v.SetDefault("upstream.timeout", fetchers.DefaultTimeout)
	v.SetDefault("excluded_currencies", []string{"TRY", "PLN", "THB", "MXN"})
	v.SetDefault("cache.driver", string(MemoryCache))
	v.SetDefault("cache.ttl", services.DefaultCacheTTL)
	v.SetDefault("cache.single_flight", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", cache.DefaultRedisPrefix)
	v.SetDefault("resilience.retries", resilience.DefaultRetries)
	v.SetDefault("resilience.backoff", resilience.DefaultBackoff)
	v.SetDefault("resilience.breaker_threshold", resilience.DefaultFailureThreshold)
	v.SetDefault("resilience.breaker_cooldown", resilience.DefaultCooldown)
	v.SetDefault("storage", []string{})
	v.SetDefault("migrate", false)
	v.SetDefault("databases.mysql.net", "tcp")
	v.SetDefault("databases.mysql.table", storage.DefaultMySQLTable)
	v.SetDefault("databases.mongodb.db", storage.DefaultMongoDatabase)
	v.SetDefault("databases.mongodb.collection", storage.DefaultMongoCollection)
	v.SetDefault("bases", []string{"EUR"})
}

func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// stringSlice accepts both YAML lists and comma separated environment values.
func stringSlice(v *viper.Viper, key string) []string {
	values := make([]string, 0)

	for _, value := range v.GetStringSlice(key) {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}

	return values
}

func mysqlDSN(v *viper.Viper) string {
	mysqlDriverConfig := mysql.NewConfig()
	mysqlDriverConfig.User = v.GetString("databases.mysql.user")
	mysqlDriverConfig.Passwd = v.GetString("databases.mysql.password")
	mysqlDriverConfig.Addr = v.GetString("databases.mysql.addr")
	mysqlDriverConfig.Net = v.GetString("databases.mysql.net")
	mysqlDriverConfig.DBName = v.GetString("databases.mysql.db")
	mysqlDriverConfig.ParseTime = true

	return mysqlDriverConfig.FormatDSN()
}

func currencyCodes(key string, codes []string) error {
	for _, code := range codes {
		if !currency.IsCurrencyCode(code) {
			return fmt.Errorf("%w: %s contains invalid currency code %q", currency.ErrConfiguration, key, code)
		}
	}

	return nil
}

func Load(v *viper.Viper) (Config, error) {
	storages, err := storage.ConvertToProvidersFromStringSlice(stringSlice(v, "storage"))
	if err != nil {
		return Config{}, err
	}

	storageBaseConfig := storage.BaseConfig{
		Migrate: v.GetBool("migrate"),
	}

	c := Config{
		Provider: strings.TrimSpace(v.GetString("provider")),
		Upstream: UpstreamConfig{
			URL:     v.GetString("upstream.url"),
			Timeout: v.GetDuration("upstream.timeout"),
		},
		ExcludedCurrencies: stringSlice(v, "excluded_currencies"),
		Cache: CacheConfig{
			Driver:       CacheDriver(strings.ToLower(v.GetString("cache.driver"))),
			TTL:          v.GetDuration("cache.ttl"),
			SingleFlight: v.GetBool("cache.single_flight"),
			Redis: cache.RedisConfig{
				Addr:     v.GetString("cache.redis.addr"),
				Password: v.GetString("cache.redis.password"),
				DB:       v.GetInt("cache.redis.db"),
				Prefix:   v.GetString("cache.redis.prefix"),
			},
		},
		Resilience: resilience.Config{
			Name:             strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
			Retries:          v.GetInt("resilience.retries"),
			Backoff:          v.GetDuration("resilience.backoff"),
			FailureThreshold: v.GetUint32("resilience.breaker_threshold"),
			Cooldown:         v.GetDuration("resilience.breaker_cooldown"),
		},
		Storage: storages,
		MySQL: storage.MySQLConfig{
			BaseConfig:       storageBaseConfig,
			ConnectionString: mysqlDSN(v),
			TableName:        v.GetString("databases.mysql.table"),
		},
		MongoDB: storage.MongoDBConfig{
			BaseConfig:       storageBaseConfig,
			ConnectionString: v.GetString("databases.mongodb.uri"),
			Database:         v.GetString("databases.mongodb.db"),
			Collection:       v.GetString("databases.mongodb.collection"),
		},
		Bases: stringSlice(v, "bases"),
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("%w: provider is required", currency.ErrConfiguration)
	}

	if c.Upstream.URL == "" {
		return fmt.Errorf("%w: upstream.url is required", currency.ErrConfiguration)
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("%w: upstream.timeout must be positive, got %s", currency.ErrConfiguration, c.Upstream.Timeout)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive, got %s", currency.ErrConfiguration, c.Cache.TTL)
	}

	switch c.Cache.Driver {
	case MemoryCache, RedisCache:
	default:
		return fmt.Errorf("%w: unknown cache driver %q", currency.ErrConfiguration, c.Cache.Driver)
	}

	if err := c.Resilience.Validate(); err != nil {
		return err
	}

	if err := currencyCodes("excluded_currencies", c.ExcludedCurrencies); err != nil {
		return err
	}

	return currencyCodes("bases", c.Bases)
}

func (c Config) Excluded() currency.ExcludedCurrencies {
	return currency.NewExcludedCurrencies(c.ExcludedCurrencies...)
}

func (c Config) StorageConfig(provider storage.Provider) interface{} {
	switch provider {
	case storage.MySQL:
		return c.MySQL
	case storage.MongoDB:
		return c.MongoDB
	}

	return nil
}
