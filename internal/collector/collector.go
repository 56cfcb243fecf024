package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/calculator"
	"TurtleTrader/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Display   string
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateMockBars(m.Price, start, end), nil
}

func (m *MockFetcher) StockName(_ context.Context, _ string) (string, error) {
	return m.Display, nil
}

// generateMockBars produces a weekday series with a slow sine swing so the
// channels produce breakouts and exits.
func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	var bars []model.OHLCV
	prev := 0.0
	i := 0
	for d := dayOf(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + 0.15*math.Sin(float64(i)/9))
		bars = append(bars, model.OHLCV{
			Date:      d,
			Open:      p * 0.999,
			High:      p * 1.01,
			Low:       p * 0.99,
			Close:     p,
			PrevClose: prev,
			Volume:    1000000,
		})
		prev = p
		i++
	}
	return bars
}

// Collector fetches raw bars and turns them into a derived series.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
	Windows calculator.Windows
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, windows calculator.Windows) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Windows: windows}
}

// Collect fetches the inclusive range, normalizes it and derives indicators.
// It returns model.ErrDataUnavailable when the source fails or yields fewer
// bars than the indicator warm-up.
func (c *Collector) Collect(ctx context.Context, start, end time.Time) (*model.Series, error) {
	raw, err := c.Fetcher.FetchDailyBars(ctx, c.Symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch daily bars from %s: %w", model.ErrDataUnavailable, c.Fetcher.Name(), err)
	}

	bars := Normalize(raw, start, end)
	if warmup := c.Windows.Warmup(); len(bars) < warmup {
		return nil, fmt.Errorf("%w: %s returned %d usable bars for %s, need %d",
			model.ErrDataUnavailable, c.Fetcher.Name(), len(bars), c.Symbol, warmup)
	}

	derived, err := calculator.Derive(bars, c.Windows)
	if err != nil {
		return nil, fmt.Errorf("derive indicators: %w", err)
	}

	return &model.Series{
		Symbol:    c.Symbol,
		Name:      c.stockName(ctx),
		Bars:      derived,
		FetchedAt: time.Now(),
	}, nil
}

func (c *Collector) stockName(ctx context.Context) string {
	namer, ok := c.Fetcher.(Namer)
	if !ok {
		return c.Symbol
	}
	name, err := namer.StockName(ctx, c.Symbol)
	if err != nil {
		log.Warnf("stock name lookup for %s failed: %v", c.Symbol, err)
		return c.Symbol
	}
	if name == "" {
		return c.Symbol
	}
	return name
}

// Normalize sorts bars by date, keeps the last bar of each day, drops bars
// outside [start, end] or with impossible prices, and fills a missing
// previous close from the preceding bar.
func Normalize(raw []model.OHLCV, start, end time.Time) []model.OHLCV {
	from, to := dayOf(start), dayOf(end)
	byDay := make(map[time.Time]model.OHLCV, len(raw))
	for _, b := range raw {
		d := dayOf(b.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		if b.Close <= 0 || b.High < b.Low {
			log.Warnf("dropping malformed bar %s: %+v", d.Format("2006-01-02"), b)
			continue
		}
		b.Date = d
		byDay[d] = b
	}

	bars := make([]model.OHLCV, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	for i := 1; i < len(bars); i++ {
		if bars[i].PrevClose == 0 {
			bars[i].PrevClose = bars[i-1].Close
		}
	}
	return bars
}
