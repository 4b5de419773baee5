package fetchers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FrankfurterURL = "https://api.frankfurter.app"

	maxErrorBody = 256
)

type (
	latestResponse struct {
		Amount decimal.Decimal            `json:"amount"`
		Base   string                     `json:"base"`
		Date   string                     `json:"date"`
		Rates  map[string]decimal.Decimal `json:"rates"`
	}

	historyResponse struct {
		Amount    decimal.Decimal                       `json:"amount"`
		Base      string                                `json:"base"`
		StartDate string                                `json:"start_date"`
		EndDate   string                                `json:"end_date"`
		Rates     map[string]map[string]decimal.Decimal `json:"rates"`
	}
)

var (
	ErrClient    = errors.New("client error")
	ErrServer    = errors.New("server error")
	ErrUnknown   = errors.New("unknown error")
	ErrEmptyBody = errors.New("empty response body")
)

func newRequest(ctx context.Context, baseURL, path string, query url.Values) (*http.Request, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Accept", "application/json")

	return req, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}

	return s
}
