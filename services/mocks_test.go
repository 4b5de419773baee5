package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

type (
	MockFetcher struct {
		mock.Mock
	}

	MockStorage struct {
		mock.Mock
		name string
	}

	MockProvider struct {
		mock.Mock
	}
)

func (m *MockFetcher) FetchLatest(ctx context.Context, baseCurrency string) (currency.RateSnapshot, error) {
	args := m.Called(ctx, baseCurrency)

	return args.Get(0).(currency.RateSnapshot), args.Error(1)
}

func (m *MockFetcher) FetchHistory(ctx context.Context, baseCurrency string, start, end time.Time) (currency.HistoricalWindow, error) {
	args := m.Called(ctx, baseCurrency, start, end)

	return args.Get(0).(currency.HistoricalWindow), args.Error(1)
}

func (m *MockStorage) Store(ctx context.Context, records []currency.RateRecord) ([]currency.RateRecord, error) {
	args := m.Called(ctx, records)

	return1 := args.Get(0)
	if return1 == nil {
		return nil, args.Error(1)
	}

	return return1.([]currency.RateRecord), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, base, quote string, page, perPage int64) ([]currency.RateRecord, error) {
	args := m.Called(ctx, base, quote, page, perPage)

	return args.Get(0).([]currency.RateRecord), args.Error(1)
}

func (m *MockStorage) GetStorageProviderName() string {
	return m.name
}

func (m *MockStorage) Migrate(context.Context) error {
	return nil
}

func (m *MockStorage) Drop(context.Context) error {
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockProvider) GetLatestExchangeRates(ctx context.Context, baseCurrency string) (currency.RateSnapshot, error) {
	args := m.Called(ctx, baseCurrency)

	return args.Get(0).(currency.RateSnapshot), args.Error(1)
}

func (m *MockProvider) ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to, amount)

	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockProvider) GetHistoricalExchangeRates(ctx context.Context, baseCurrency string, start, end time.Time, page, pageSize int) (currency.HistoricalWindow, error) {
	args := m.Called(ctx, baseCurrency, start, end, page, pageSize)

	return args.Get(0).(currency.HistoricalWindow), args.Error(1)
}

func snapshot(base string, rates map[string]string) currency.RateSnapshot {
	s := currency.RateSnapshot{
		BaseCurrency: base,
		Rates:        make(map[string]decimal.Decimal, len(rates)),
		AsOf:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	for code, rate := range rates {
		s.Rates[code] = decimal.RequireFromString(rate)
	}

	return s
}

func date(day string) time.Time {
	t, err := time.Parse(currency.DateLayout, day)
	if err != nil {
		panic(err)
	}

	return t
}

// january2020 lists the ECB business days of January 2020.
func january2020() currency.HistoricalWindow {
	window := currency.HistoricalWindow{
		BaseCurrency: "EUR",
		Amount:       decimal.NewFromInt(1),
		StartDate:    date("2020-01-02"),
		EndDate:      date("2020-01-31"),
	}

	for day := date("2020-01-01"); !day.After(date("2020-01-31")); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday || day.Day() == 1 {
			continue
		}

		rate := decimal.RequireFromString("1.1").Add(decimal.New(int64(day.Day()), -4))
		window.Rates = append(window.Rates, currency.DailyRates{
			Date:  day,
			Rates: map[string]decimal.Decimal{"USD": rate},
		})
	}

	window.TotalDays = len(window.Rates)

	return window
}

func dailyWindow(days int) currency.HistoricalWindow {
	window := currency.HistoricalWindow{
		BaseCurrency: "EUR",
		Amount:       decimal.NewFromInt(1),
		StartDate:    date("2020-01-01"),
		EndDate:      date("2020-01-01").AddDate(0, 0, days-1),
	}

	for i := 0; i < days; i++ {
		window.Rates = append(window.Rates, currency.DailyRates{
			Date:  window.StartDate.AddDate(0, 0, i),
			Rates: map[string]decimal.Decimal{"USD": decimal.New(int64(11000+i), -4)},
		})
	}

	window.TotalDays = days

	return window
}
