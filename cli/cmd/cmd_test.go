package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/cli/cmd"
	"github.com/sunijk/sunij-currencyconversionapi/config"
	"github.com/sunijk/sunij-currencyconversionapi/services"
)

type (
	stubProvider struct {
		calls int32
	}

	stubStorage struct {
		mutex   sync.Mutex
		stored  [][]currency.RateRecord
		records []currency.RateRecord
	}
)

func (p *stubProvider) GetLatestExchangeRates(_ context.Context, baseCurrency string) (currency.RateSnapshot, error) {
	atomic.AddInt32(&p.calls, 1)

	return currency.RateSnapshot{
		BaseCurrency: baseCurrency,
		Rates:        map[string]decimal.Decimal{"USD": decimal.RequireFromString("1.1")},
		AsOf:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (p *stubProvider) ConvertCurrency(_ context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if to == "TRY" {
		return decimal.Zero, errors.New("conversion involving " + from + " or TRY is not allowed")
	}

	return amount.Mul(decimal.RequireFromString("1.1")), nil
}

func (p *stubProvider) GetHistoricalExchangeRates(_ context.Context, baseCurrency string, start, end time.Time, page, pageSize int) (currency.HistoricalWindow, error) {
	return currency.HistoricalWindow{
		BaseCurrency: baseCurrency,
		StartDate:    start,
		EndDate:      end,
		Rates:        []currency.DailyRates{},
		Page:         page,
		PageSize:     pageSize,
	}, nil
}

func (s *stubStorage) Store(_ context.Context, records []currency.RateRecord) ([]currency.RateRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stored = append(s.stored, records)

	return records, nil
}

func (s *stubStorage) Get(context.Context, string, string, int64, int64) ([]currency.RateRecord, error) {
	return s.records, nil
}

func (s *stubStorage) GetStorageProviderName() string { return "stub" }

func (s *stubStorage) Migrate(context.Context) error { return nil }

func (s *stubStorage) Drop(context.Context) error { return nil }

func (s *stubStorage) Close() error { return nil }

func (s *stubStorage) saves() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.stored)
}

func stubBuilder(provider currency.Provider, st *stubStorage, closed *int32) cmd.Builder {
	return func(_ context.Context, c config.Config, _ log.Logger) (*cmd.App, func(), error) {
		storages := []currency.Storage{}
		if st != nil {
			storages = append(storages, st)
		}

		return &cmd.App{
			Provider: provider,
			Archive: services.ArchiveService{
				Provider:     provider,
				Storage:      storages,
				ProviderName: currency.FrankfurterProvider,
			},
			Storages: storages,
			Bases:    c.Bases,
		}, func() { atomic.AddInt32(closed, 1) }, nil
	}
}

func run(ctx context.Context, builder cmd.Builder, v *viper.Viper, args ...string) (string, error) {
	var out bytes.Buffer
	if v == nil {
		v = viper.New()
	}

	err := cmd.Execute(ctx, cmd.Options{
		Viper:   v,
		Builder: builder,
		Args:    args,
		Out:     &out,
		Err:     &out,
	})

	return out.String(), err
}

func TestLatestCommand(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32

	out, err := run(context.Background(), stubBuilder(&stubProvider{}, nil, &closed), nil, "latest", "--base", "USD")

	asserts.Nil(err)
	var snapshot currency.RateSnapshot
	asserts.Nil(json.Unmarshal([]byte(out), &snapshot))
	asserts.Equal("USD", snapshot.BaseCurrency)
	asserts.Equal("1.1", snapshot.Rates["USD"].String())
	asserts.Equal(int32(1), atomic.LoadInt32(&closed))
}

func TestConvertCommand(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32
	builder := stubBuilder(&stubProvider{}, nil, &closed)

	out, err := run(context.Background(), builder, nil, "convert", "--from", "EUR", "--to", "USD", "--amount", "100")
	asserts.Nil(err)

	var result currency.ConversionResult
	asserts.Nil(json.Unmarshal([]byte(out), &result))
	asserts.Equal("EUR", result.FromCurrency)
	asserts.Equal("USD", result.ToCurrency)
	asserts.Equal("110", result.ConvertedAmount.String())

	_, err = run(context.Background(), builder, nil, "convert", "--amount", "ten")
	asserts.ErrorIs(err, currency.ErrValidation)

	_, err = run(context.Background(), builder, nil, "convert", "--to", "TRY")
	asserts.NotNil(err)
	asserts.Contains(err.Error(), "TRY")
}

func TestHistoryCommand(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32
	builder := stubBuilder(&stubProvider{}, nil, &closed)

	out, err := run(context.Background(), builder, nil,
		"history", "--start", "2020-01-01", "--end", "2020-01-31", "--page", "4", "--page-size", "10")
	asserts.Nil(err)

	var window currency.HistoricalWindow
	asserts.Nil(json.Unmarshal([]byte(out), &window))
	asserts.Equal(4, window.Page)
	asserts.Equal(10, window.PageSize)
	asserts.Equal("2020-01-31", window.EndDate.Format(currency.DateLayout))

	_, err = run(context.Background(), builder, nil, "history", "--start", "01/01/2020", "--end", "2020-01-31")
	asserts.ErrorIs(err, currency.ErrValidation)

	_, err = run(context.Background(), builder, nil, "history", "--start", "2020-01-01")
	asserts.NotNil(err)
}

func TestFetchCommand(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32
	st := &stubStorage{}
	v := viper.New()
	v.Set("bases", []string{"EUR", "USD"})

	_, err := run(context.Background(), stubBuilder(&stubProvider{}, st, &closed), v, "fetch")

	asserts.Nil(err)
	asserts.Equal(1, st.saves())
	asserts.Len(st.stored[0], 2)
	asserts.Equal("EUR", st.stored[0][0].Base)
	asserts.Equal("USD", st.stored[0][1].Base)
}

func TestFetchCommand_Standalone(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32
	st := &stubStorage{}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := run(ctx, stubBuilder(&stubProvider{}, st, &closed), nil, "fetch", "--standalone", "--after", "20ms")

	asserts.Nil(err)
	asserts.Greater(st.saves(), 1)
	asserts.Equal(int32(1), atomic.LoadInt32(&closed))

	_, err = run(context.Background(), stubBuilder(&stubProvider{}, st, &closed), nil, "fetch", "--standalone", "--after", "0s")
	asserts.ErrorIs(err, currency.ErrValidation)
}

func TestFetchCommand_NoStorage(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32

	_, err := run(context.Background(), stubBuilder(&stubProvider{}, nil, &closed), nil, "fetch")

	asserts.ErrorIs(err, services.ErrNoStorageProvided)
}

func TestArchivedCommand(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32
	st := &stubStorage{records: []currency.RateRecord{{
		ID:       "0b6b2f7e-5a53-4b8e-9d1a-51a1e4c4c001",
		Base:     "EUR",
		Quote:    "USD",
		Provider: currency.FrankfurterProvider,
		Rate:     decimal.RequireFromString("1.0812"),
	}}}

	out, err := run(context.Background(), stubBuilder(&stubProvider{}, st, &closed), nil, "archived", "--base", "EUR", "--quote", "USD")
	asserts.Nil(err)
	asserts.Contains(out, `"quote": "USD"`)
	asserts.Contains(out, `"rate": "1.0812"`)

	_, err = run(context.Background(), stubBuilder(&stubProvider{}, nil, &closed), nil, "archived")
	asserts.ErrorIs(err, currency.ErrConfiguration)
}

func TestConfigFile(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var closed int32
	st := &stubStorage{}
	path := filepath.Join(t.TempDir(), "config.yml")
	asserts.Nil(os.WriteFile(path, []byte("bases: [GBP]\n"), 0o600))

	_, err := run(context.Background(), stubBuilder(&stubProvider{}, st, &closed), nil, "fetch", "--config", path)
	asserts.Nil(err)
	asserts.Equal("GBP", st.stored[0][0].Base)

	_, err = run(context.Background(), stubBuilder(&stubProvider{}, st, &closed), nil, "fetch", "--config", filepath.Join(t.TempDir(), "missing.yml"))
	asserts.ErrorIs(err, currency.ErrConfiguration)
}

func TestBuild_UnknownProvider(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	v := viper.New()
	v.Set("provider", "ExchangeRatesAPI")

	_, err := run(context.Background(), nil, v, "latest")

	asserts.ErrorIs(err, currency.ErrConfiguration)
}

func TestBuild_EndToEnd(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		asserts.Equal("/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"EUR","date":"2024-03-01","rates":{"USD":1.1}}`))
	}))
	defer server.Close()

	v := viper.New()
	v.Set("upstream.url", server.URL)

	out, err := run(context.Background(), nil, v, "convert", "--from", "EUR", "--to", "USD", "--amount", "100")

	asserts.Nil(err)
	asserts.Contains(out, `"converted_amount": "110"`)
	asserts.Equal(int32(1), atomic.LoadInt32(&calls))

	_, err = run(context.Background(), nil, v, "convert", "--from", "EUR", "--to", "TRY", "--amount", "100")
	asserts.ErrorIs(err, currency.ErrValidation)
}
