package currency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type (
	Provider interface {
		GetLatestExchangeRates(ctx context.Context, baseCurrency string) (RateSnapshot, error)
		ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error)
		GetHistoricalExchangeRates(ctx context.Context, baseCurrency string, start, end time.Time, page, pageSize int) (HistoricalWindow, error)
	}
)
