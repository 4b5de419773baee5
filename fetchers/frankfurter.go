package fetchers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/resilience"
)

var _ currency.Fetcher = (*FrankfurterFetcher)(nil)

type (
	Executor interface {
		Execute(ctx context.Context, operation func(ctx context.Context) error) error
	}

	FrankfurterFetcher struct {
		url    string
		client *http.Client
		policy Executor
		logger log.Logger
	}

	directExecutor struct{}
)

func (directExecutor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	return operation(ctx)
}

func NewFrankfurterFetcher(config FrankfurterConfig) *FrankfurterFetcher {
	f := &FrankfurterFetcher{
		url:    config.URL,
		client: config.Client,
		policy: config.Policy,
		logger: config.Logger,
	}

	if f.url == "" {
		f.url = FrankfurterURL
	}

	if f.client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		f.client = &http.Client{Timeout: timeout}
	}

	if f.policy == nil {
		f.policy = directExecutor{}
	}

	if f.logger == nil {
		f.logger = log.NewNopLogger()
	}

	return f
}

func (f *FrankfurterFetcher) FetchLatest(ctx context.Context, baseCurrency string) (currency.RateSnapshot, error) {
	body, err := f.get(ctx, "latest", url.Values{"base": {baseCurrency}})
	if err != nil {
		return currency.RateSnapshot{}, err
	}

	return parseLatest(baseCurrency, body)
}

func (f *FrankfurterFetcher) FetchHistory(ctx context.Context, baseCurrency string, start, end time.Time) (currency.HistoricalWindow, error) {
	path := fmt.Sprintf("%s..%s", start.Format(currency.DateLayout), end.Format(currency.DateLayout))

	body, err := f.get(ctx, path, url.Values{"base": {baseCurrency}})
	if err != nil {
		return currency.HistoricalWindow{}, err
	}

	return parseHistory(baseCurrency, start, end, body)
}

func (f *FrankfurterFetcher) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var body []byte

	err := f.policy.Execute(ctx, func(ctx context.Context) error {
		b, err := f.do(ctx, path, query)
		if err != nil {
			return err
		}

		body = b
		return nil
	})

	return body, err
}

func (f *FrankfurterFetcher) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := newRequest(ctx, f.url, path, query)
	if err != nil {
		return nil, fmt.Errorf("building http request: %w", err)
	}

	_ = level.Debug(f.logger).Log("msg", "loading exchange rates", "url", req.URL.String())

	res, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, resilience.Transient(fmt.Errorf("http get %s: %w", path, err))
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, resilience.Transient(fmt.Errorf("reading response body: %w", err))
	}

	if err := handleHTTPStatusCodeError(res, body); err != nil {
		return nil, err
	}

	return body, nil
}

// handleHTTPStatusCodeError treats 5xx and 408 as transient; every other
// non-200 answer is a permanent data problem.
func handleHTTPStatusCodeError(res *http.Response, body []byte) error {
	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode == http.StatusRequestTimeout, res.StatusCode >= http.StatusInternalServerError:
		return resilience.Transient(fmt.Errorf("%w: status %d", ErrServer, res.StatusCode))
	case res.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: %w: status %d: %s", currency.ErrUpstreamData, ErrClient, res.StatusCode, snippet(body))
	default:
		return fmt.Errorf("%w: %w: status %d", currency.ErrUpstreamData, ErrUnknown, res.StatusCode)
	}
}

func decode(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: %w", currency.ErrUpstreamData, ErrEmptyBody)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding json: %v", currency.ErrUpstreamData, err)
	}

	return nil
}

func parseDate(field, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}

	date, err := time.Parse(currency.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad %s %q", currency.ErrUpstreamData, field, value)
	}

	return date, nil
}

func checkBase(requested, returned string) error {
	if returned != "" && returned != requested {
		return fmt.Errorf("%w: requested base %s, upstream answered %s", currency.ErrUpstreamData, requested, returned)
	}

	return nil
}

func parseLatest(baseCurrency string, body []byte) (currency.RateSnapshot, error) {
	var data latestResponse
	if err := decode(body, &data); err != nil {
		return currency.RateSnapshot{}, err
	}

	if err := checkBase(baseCurrency, data.Base); err != nil {
		return currency.RateSnapshot{}, err
	}

	asOf, err := parseDate("date", data.Date, time.Time{})
	if err != nil {
		return currency.RateSnapshot{}, err
	}

	delete(data.Rates, baseCurrency)

	snapshot := currency.RateSnapshot{
		BaseCurrency: baseCurrency,
		Rates:        data.Rates,
		AsOf:         asOf,
	}

	if err := snapshot.Validate(); err != nil {
		return currency.RateSnapshot{}, err
	}

	return snapshot, nil
}

func parseHistory(baseCurrency string, start, end time.Time, body []byte) (currency.HistoricalWindow, error) {
	var data historyResponse
	if err := decode(body, &data); err != nil {
		return currency.HistoricalWindow{}, err
	}

	if err := checkBase(baseCurrency, data.Base); err != nil {
		return currency.HistoricalWindow{}, err
	}

	if len(data.Rates) == 0 {
		return currency.HistoricalWindow{}, fmt.Errorf("%w: no historical rates for %s", currency.ErrUpstreamData, baseCurrency)
	}

	window := currency.HistoricalWindow{
		BaseCurrency: baseCurrency,
		Amount:       data.Amount,
		Rates:        make([]currency.DailyRates, 0, len(data.Rates)),
	}

	var err error
	if window.StartDate, err = parseDate("start_date", data.StartDate, start); err != nil {
		return currency.HistoricalWindow{}, err
	}

	if window.EndDate, err = parseDate("end_date", data.EndDate, end); err != nil {
		return currency.HistoricalWindow{}, err
	}

	for day, rates := range data.Rates {
		date, err := parseDate("rate date", day, time.Time{})
		if err != nil {
			return currency.HistoricalWindow{}, err
		}

		if date.IsZero() || date.Before(window.StartDate) || date.After(window.EndDate) {
			return currency.HistoricalWindow{}, fmt.Errorf("%w: rate date %q outside %s..%s", currency.ErrUpstreamData, day,
				window.StartDate.Format(currency.DateLayout), window.EndDate.Format(currency.DateLayout))
		}

		delete(rates, baseCurrency)
		snapshot := currency.RateSnapshot{BaseCurrency: baseCurrency, Rates: rates, AsOf: date}
		if err := snapshot.Validate(); err != nil {
			return currency.HistoricalWindow{}, err
		}

		window.Rates = append(window.Rates, currency.DailyRates{Date: date, Rates: rates})
	}

	sort.Slice(window.Rates, func(i, j int) bool {
		return window.Rates[i].Date.Before(window.Rates[j].Date)
	})

	window.TotalDays = len(window.Rates)

	return window, nil
}
