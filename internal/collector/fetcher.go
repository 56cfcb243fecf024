package collector

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"TurtleTrader/internal/model"
)

// Fetcher defines the interface for fetching daily bars over an inclusive
// date range.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// Namer is implemented by fetchers that can resolve a display name for a
// symbol. An empty name means unknown.
type Namer interface {
	StockName(ctx context.Context, symbol string) (string, error)
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

// dayOf truncates t to a UTC calendar date.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
