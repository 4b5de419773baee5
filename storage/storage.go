// Package storage archives fetched rates in MySQL or MongoDB.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

type (
	Provider string

	BaseConfig struct {
		Migrate bool
	}

	MySQLConfig struct {
		BaseConfig
		ConnectionString string
		TableName        string
		IDGenerator      IDGenerator
	}

	MongoDBConfig struct {
		BaseConfig
		ConnectionString string
		Database         string
		Collection       string
	}
)

const (
	MySQL   Provider = "mysql"
	MongoDB Provider = "mongodb"
)

var (
	ErrStorageNotFound = errors.New("storage is not found")

	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func ConvertToProvidersFromStringSlice(strings []string) ([]Provider, error) {
	providers := make([]Provider, 0, len(strings))

	for _, str := range strings {
		provider, err := ConvertToProviderFromString(str)
		if err != nil {
			return nil, err
		}

		providers = append(providers, provider)
	}

	return providers, nil
}

func ConvertToProviderFromString(str string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "mysql":
		return MySQL, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	}

	return "", fmt.Errorf("%w: value %q is not a valid storage", currency.ErrConfiguration, str)
}

func NewStorage(ctx context.Context, provider Provider, config interface{}) (currency.Storage, error) {
	switch provider {
	case MySQL:
		c, ok := config.(MySQLConfig)
		if !ok {
			return nil, fmt.Errorf("%w: mysql storage needs MySQLConfig, got %T", currency.ErrConfiguration, config)
		}

		return NewMySQLStorage(ctx, c)
	case MongoDB:
		c, ok := config.(MongoDBConfig)
		if !ok {
			return nil, fmt.Errorf("%w: mongodb storage needs MongoDBConfig, got %T", currency.ErrConfiguration, config)
		}

		return NewMongoDBStorage(ctx, c)
	}

	return nil, fmt.Errorf("%w: %q", ErrStorageNotFound, provider)
}

func validatePage(page, perPage int64) error {
	if page < 1 || perPage < 1 {
		return fmt.Errorf("%w: page and per page must be at least 1, got %d and %d", currency.ErrValidation, page, perPage)
	}

	return nil
}
