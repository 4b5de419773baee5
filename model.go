package currency

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the upstream calendar date format.
const DateLayout = "2006-01-02"

type (
	RateSnapshot struct {
		BaseCurrency string                     `json:"base"`
		Rates        map[string]decimal.Decimal `json:"rates"`
		AsOf         time.Time                  `json:"date"`
	}

	DailyRates struct {
		Date  time.Time                  `json:"date"`
		Rates map[string]decimal.Decimal `json:"rates"`
	}

	// HistoricalWindow is one page of a date range. Rates is ordered by
	// ascending date.
	HistoricalWindow struct {
		BaseCurrency string          `json:"base"`
		Amount       decimal.Decimal `json:"amount"`
		StartDate    time.Time       `json:"start_date"`
		EndDate      time.Time       `json:"end_date"`
		Rates        []DailyRates    `json:"rates"`
		Page         int             `json:"page"`
		PageSize     int             `json:"page_size"`
		TotalDays    int             `json:"total_days"`
	}

	ConversionResult struct {
		FromCurrency    string          `json:"from"`
		ToCurrency      string          `json:"to"`
		OriginalAmount  decimal.Decimal `json:"original_amount"`
		ConvertedAmount decimal.Decimal `json:"converted_amount"`
	}

	PageRequest struct {
		Page     int
		PageSize int
	}

	ExcludedCurrencies struct {
		codes map[string]struct{}
	}

	// RateRecord is one archived quote. ID is assigned by the storage.
	RateRecord struct {
		ID        interface{}     `json:"id"`
		Base      string          `json:"base"`
		Quote     string          `json:"quote"`
		Provider  ProviderName    `json:"provider"`
		Rate      decimal.Decimal `json:"rate"`
		AsOf      time.Time       `json:"date"`
		CreatedAt time.Time       `json:"created_at"`
	}
)

func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}

	return true
}

func ValidateCurrencyCode(code string) error {
	if !IsCurrencyCode(code) {
		return fmt.Errorf("%w: invalid currency code %q", ErrValidation, code)
	}

	return nil
}

func copyRates(rates map[string]decimal.Decimal) map[string]decimal.Decimal {
	if rates == nil {
		return nil
	}

	cp := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		cp[code] = rate
	}

	return cp
}

func (s RateSnapshot) Clone() RateSnapshot {
	s.Rates = copyRates(s.Rates)
	return s
}

// Validate rejects empty rates, malformed codes and a quote of the base itself.
func (s RateSnapshot) Validate() error {
	if len(s.Rates) == 0 {
		return fmt.Errorf("%w: no exchange rates for %s", ErrUpstreamData, s.BaseCurrency)
	}

	for code := range s.Rates {
		if !IsCurrencyCode(code) {
			return fmt.Errorf("%w: invalid currency code %q in rates", ErrUpstreamData, code)
		}

		if code == s.BaseCurrency {
			return fmt.Errorf("%w: rates for %s quote the base currency", ErrUpstreamData, s.BaseCurrency)
		}
	}

	return nil
}

func (w HistoricalWindow) Clone() HistoricalWindow {
	if w.Rates == nil {
		return w
	}

	days := make([]DailyRates, 0, len(w.Rates))
	for _, day := range w.Rates {
		days = append(days, DailyRates{Date: day.Date, Rates: copyRates(day.Rates)})
	}
	w.Rates = days

	return w
}

func (p PageRequest) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("%w: page must be at least 1, got %d", ErrValidation, p.Page)
	}

	if p.PageSize < 1 {
		return fmt.Errorf("%w: page size must be at least 1, got %d", ErrValidation, p.PageSize)
	}

	return nil
}

// Bounds returns the half-open index range of the page within total entries.
// Pages past the end yield an empty range.
func (p PageRequest) Bounds(total int) (int, int) {
	if p.Page < 1 || p.PageSize < 1 || total <= 0 {
		return 0, 0
	}

	if p.Page-1 > total/p.PageSize {
		return total, total
	}

	start := (p.Page - 1) * p.PageSize
	if start >= total {
		return total, total
	}

	end := total
	if total-start > p.PageSize {
		end = start + p.PageSize
	}

	return start, end
}

func NewExcludedCurrencies(codes ...string) ExcludedCurrencies {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}

	return ExcludedCurrencies{codes: set}
}

func (e ExcludedCurrencies) Contains(code string) bool {
	_, ok := e.codes[code]
	return ok
}

func (e ExcludedCurrencies) Codes() []string {
	codes := make([]string, 0, len(e.codes))
	for code := range e.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	return codes
}

func NewConversionResult(from, to string, amount, converted decimal.Decimal) ConversionResult {
	return ConversionResult{
		FromCurrency:    from,
		ToCurrency:      to,
		OriginalAmount:  amount,
		ConvertedAmount: converted,
	}
}

// RecordsFromSnapshot flattens a snapshot into archive records ordered by quote.
func RecordsFromSnapshot(snapshot RateSnapshot, provider ProviderName, createdAt time.Time) []RateRecord {
	quotes := make([]string, 0, len(snapshot.Rates))
	for quote := range snapshot.Rates {
		quotes = append(quotes, quote)
	}
	sort.Strings(quotes)

	records := make([]RateRecord, 0, len(quotes))
	for _, quote := range quotes {
		records = append(records, RateRecord{
			Base:      snapshot.BaseCurrency,
			Quote:     quote,
			Provider:  provider,
			Rate:      snapshot.Rates[quote],
			AsOf:      snapshot.AsOf,
			CreatedAt: createdAt,
		})
	}

	return records
}
