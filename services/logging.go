package services

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

type loggingProvider struct {
	next   currency.Provider
	logger log.Logger
}

func NewLoggingProvider(logger log.Logger, next currency.Provider) currency.Provider {
	return &loggingProvider{
		next:   next,
		logger: logger,
	}
}

func (p *loggingProvider) GetLatestExchangeRates(ctx context.Context, baseCurrency string) (snapshot currency.RateSnapshot, err error) {
	defer func(begin time.Time) {
		_ = p.logger.Log(
			"method", "get_latest_exchange_rates",
			"base", baseCurrency,
			"rates", len(snapshot.Rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	return p.next.GetLatestExchangeRates(ctx, baseCurrency)
}

func (p *loggingProvider) ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (converted decimal.Decimal, err error) {
	defer func(begin time.Time) {
		_ = p.logger.Log(
			"method", "convert_currency",
			"from", from,
			"to", to,
			"amount", amount,
			"converted", converted,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	return p.next.ConvertCurrency(ctx, from, to, amount)
}

func (p *loggingProvider) GetHistoricalExchangeRates(
	ctx context.Context,
	baseCurrency string,
	start, end time.Time,
	page, pageSize int,
) (window currency.HistoricalWindow, err error) {
	defer func(begin time.Time) {
		_ = p.logger.Log(
			"method", "get_historical_exchange_rates",
			"base", baseCurrency,
			"start", start.Format(currency.DateLayout),
			"end", end.Format(currency.DateLayout),
			"page", page,
			"page_size", pageSize,
			"days", len(window.Rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	return p.next.GetHistoricalExchangeRates(ctx, baseCurrency, start, end, page, pageSize)
}
