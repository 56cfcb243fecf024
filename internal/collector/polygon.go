package collector

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/model"
)

// PolygonFetcher implements Fetcher and Namer using the Polygon.io REST API.
// It serves US tickers.
type PolygonFetcher struct {
	Client *polygon.Client
}

// NewPolygonFetcher creates a new Polygon fetcher.
func NewPolygonFetcher(apiKey string) *PolygonFetcher {
	return &PolygonFetcher{Client: polygon.New(apiKey)}
}

func (f *PolygonFetcher) Name() string { return "polygon" }

func (f *PolygonFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	log.Debugf("fetching polygon daily aggregates for %s", symbol)

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(dayOf(start)),
		To:         models.Millis(dayOf(end)),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := f.Client.ListAggs(ctx, params)

	var bars []model.OHLCV
	for iter.Next() {
		a := iter.Item()
		bars = append(bars, model.OHLCV{
			Date:   dayOf(time.Time(a.Timestamp).UTC()),
			Open:   a.Open,
			High:   a.High,
			Low:    a.Low,
			Close:  a.Close,
			Volume: a.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon list aggs: %w", err)
	}
	return bars, nil
}

func (f *PolygonFetcher) StockName(ctx context.Context, symbol string) (string, error) {
	res, err := f.Client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: symbol})
	if err != nil {
		return "", fmt.Errorf("polygon ticker details: %w", err)
	}
	return res.Results.Name, nil
}
