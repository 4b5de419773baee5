package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

const DefaultRedisPrefix = "rates"

var _ currency.RateCache = (*Redis)(nil)

type (
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	Redis struct {
		client redis.UniversalClient
		prefix string
	}
)

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &Redis{client: client, prefix: prefix}
}

func NewRedisFromConfig(ctx context.Context, config RedisConfig) (*Redis, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", currency.ErrConfiguration)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", config.Addr, err)
	}

	return NewRedis(client, config.Prefix), nil
}

func (r *Redis) key(baseCurrency string) string {
	return r.prefix + ":" + baseCurrency
}

func (r *Redis) Get(ctx context.Context, baseCurrency string) (currency.RateSnapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key(baseCurrency)).Bytes()
	if errors.Is(err, redis.Nil) {
		return currency.RateSnapshot{}, false, nil
	}

	if err != nil {
		return currency.RateSnapshot{}, false, fmt.Errorf("redis get %s: %w", r.key(baseCurrency), err)
	}

	var snapshot currency.RateSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return currency.RateSnapshot{}, false, fmt.Errorf("decoding cached snapshot %s: %w", r.key(baseCurrency), err)
	}

	return snapshot, true, nil
}

func (r *Redis) Set(ctx context.Context, baseCurrency string, snapshot currency.RateSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot for %s: %w", baseCurrency, err)
	}

	if err := r.client.Set(ctx, r.key(baseCurrency), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key(baseCurrency), err)
	}

	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
