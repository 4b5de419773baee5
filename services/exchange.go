package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

const DefaultCacheTTL = 60 * time.Second

var _ currency.Provider = (*ExchangeRateService)(nil)

type (
	ExchangeRateConfig struct {
		Fetcher  currency.Fetcher
		Cache    currency.RateCache
		TTL      time.Duration
		Excluded currency.ExcludedCurrencies
		SingleFlight bool
		Logger       log.Logger
	}

	ExchangeRateService struct {
		fetcher      currency.Fetcher
		cache        currency.RateCache
		ttl          time.Duration
		excluded     currency.ExcludedCurrencies
		singleFlight bool
		group        singleflight.Group
		logger       log.Logger
	}
)

func NewExchangeRateService(config ExchangeRateConfig) *ExchangeRateService {
	s := &ExchangeRateService{
		fetcher:      config.Fetcher,
		cache:        config.Cache,
		ttl:          config.TTL,
		excluded:     config.Excluded,
		singleFlight: config.SingleFlight,
		logger:       config.Logger,
	}

	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}

	if s.logger == nil {
		s.logger = log.NewNopLogger()
	}

	return s
}

func (s *ExchangeRateService) GetLatestExchangeRates(ctx context.Context, baseCurrency string) (currency.RateSnapshot, error) {
	if err := currency.ValidateCurrencyCode(baseCurrency); err != nil {
		return currency.RateSnapshot{}, err
	}

	if snapshot, ok := s.cached(ctx, baseCurrency); ok {
		return snapshot, nil
	}

	if !s.singleFlight {
		return s.refresh(ctx, baseCurrency)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(baseCurrency, func() (interface{}, error) {
		if snapshot, ok := s.cached(flightCtx, baseCurrency); ok {
			return snapshot, nil
		}

		return s.refresh(flightCtx, baseCurrency)
	})

	select {
	case <-ctx.Done():
		return currency.RateSnapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return currency.RateSnapshot{}, res.Err
		}

		return res.Val.(currency.RateSnapshot).Clone(), nil
	}
}

func (s *ExchangeRateService) cached(ctx context.Context, baseCurrency string) (currency.RateSnapshot, bool) {
	if s.cache == nil {
		return currency.RateSnapshot{}, false
	}

	snapshot, ok, err := s.cache.Get(ctx, baseCurrency)
	if err != nil {
		_ = level.Error(s.logger).Log("msg", "reading rate cache", "base", baseCurrency, "err", err)
		return currency.RateSnapshot{}, false
	}

	if !ok {
		_ = level.Debug(s.logger).Log("msg", "rate cache miss", "base", baseCurrency)
		return currency.RateSnapshot{}, false
	}

	_ = level.Debug(s.logger).Log("msg", "rate cache hit", "base", baseCurrency)
	snapshot.BaseCurrency = baseCurrency

	return snapshot, true
}

func (s *ExchangeRateService) refresh(ctx context.Context, baseCurrency string) (currency.RateSnapshot, error) {
	snapshot, err := s.fetcher.FetchLatest(ctx, baseCurrency)
	if err != nil {
		return currency.RateSnapshot{}, err
	}

	snapshot.BaseCurrency = baseCurrency
	delete(snapshot.Rates, baseCurrency)

	if err := snapshot.Validate(); err != nil {
		return currency.RateSnapshot{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, baseCurrency, snapshot, s.ttl); err != nil {
			_ = level.Error(s.logger).Log("msg", "writing rate cache", "base", baseCurrency, "err", err)
		}
	}

	return snapshot, nil
}

func (s *ExchangeRateService) ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if s.excluded.Contains(from) || s.excluded.Contains(to) {
		return decimal.Zero, fmt.Errorf("%w: conversion involving %s or %s is not allowed", currency.ErrValidation, from, to)
	}

	if err := currency.ValidateCurrencyCode(from); err != nil {
		return decimal.Zero, err
	}

	if err := currency.ValidateCurrencyCode(to); err != nil {
		return decimal.Zero, err
	}

	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative, got %s", currency.ErrValidation, amount)
	}

	snapshot, err := s.GetLatestExchangeRates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := snapshot.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: invalid currency: %s", currency.ErrValidation, to)
	}

	return amount.Mul(rate), nil
}

func (s *ExchangeRateService) GetHistoricalExchangeRates(
	ctx context.Context,
	baseCurrency string,
	start, end time.Time,
	page, pageSize int,
) (currency.HistoricalWindow, error) {
	if err := currency.ValidateCurrencyCode(baseCurrency); err != nil {
		return currency.HistoricalWindow{}, err
	}

	if start.IsZero() || end.IsZero() {
		return currency.HistoricalWindow{}, fmt.Errorf("%w: start and end dates are required", currency.ErrValidation)
	}

	if start.After(end) {
		return currency.HistoricalWindow{}, fmt.Errorf("%w: start date %s is after end date %s",
			currency.ErrValidation, start.Format(currency.DateLayout), end.Format(currency.DateLayout))
	}

	request := currency.PageRequest{Page: page, PageSize: pageSize}
	if err := request.Validate(); err != nil {
		return currency.HistoricalWindow{}, err
	}

	window, err := s.fetcher.FetchHistory(ctx, baseCurrency, start, end)
	if err != nil {
		return currency.HistoricalWindow{}, err
	}

	if len(window.Rates) == 0 {
		return currency.HistoricalWindow{}, fmt.Errorf("%w: no historical rates for %s", currency.ErrUpstreamData, baseCurrency)
	}

	return paginate(window, request), nil
}

// paginate keeps the requested page of window.Rates. A page past the end
// yields an empty, non-nil slice.
func paginate(window currency.HistoricalWindow, request currency.PageRequest) currency.HistoricalWindow {
	total := len(window.Rates)
	from, to := request.Bounds(total)

	days := make([]currency.DailyRates, to-from)
	copy(days, window.Rates[from:to])

	window.Rates = days
	window.Page = request.Page
	window.PageSize = request.PageSize
	window.TotalDays = total

	return window
}
