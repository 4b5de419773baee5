package currency

import (
	"context"
	"time"
)

type (
	Fetcher interface {
		FetchLatest(ctx context.Context, baseCurrency string) (RateSnapshot, error)
		FetchHistory(ctx context.Context, baseCurrency string, start, end time.Time) (HistoricalWindow, error)
	}

	// RateCache holds the latest snapshot per base currency. Implementations
	// must be safe for concurrent use.
	RateCache interface {
		Get(ctx context.Context, baseCurrency string) (RateSnapshot, bool, error)
		Set(ctx context.Context, baseCurrency string, snapshot RateSnapshot, ttl time.Duration) error
	}
)
