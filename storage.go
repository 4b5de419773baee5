package currency

import "context"

type Storage interface {
	Store(ctx context.Context, records []RateRecord) ([]RateRecord, error)
	Get(ctx context.Context, base, quote string, page, perPage int64) ([]RateRecord, error)
	GetStorageProviderName() string
	Migrate(ctx context.Context) error
	Drop(ctx context.Context) error
	Close() error
}
