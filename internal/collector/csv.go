package collector

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"TurtleTrader/internal/model"
)

// csvBar is one row of a daily bar file. Dates may be 2006-01-02 or
// 20060102; pre_close is optional.
type csvBar struct {
	Date     string  `csv:"date"`
	Open     float64 `csv:"open"`
	High     float64 `csv:"high"`
	Low      float64 `csv:"low"`
	Close    float64 `csv:"close"`
	PreClose float64 `csv:"pre_close"`
	Volume   float64 `csv:"volume"`
}

// CSVFetcher implements Fetcher over a local file holding one instrument.
// The symbol argument is ignored.
type CSVFetcher struct {
	Path string
}

// NewCSVFetcher creates a fetcher reading bars from path.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path}
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyBars(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open bar file: %w", err)
	}
	defer file.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("parse bar file %s: %w", f.Path, err)
	}

	from, to := dayOf(start), dayOf(end)
	bars := make([]model.OHLCV, 0, len(rows))
	for i, r := range rows {
		d, err := parseBarDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", f.Path, i+2, err)
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		bars = append(bars, model.OHLCV{
			Date:      d,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			PrevClose: r.PreClose,
			Volume:    r.Volume,
		})
	}
	return bars, nil
}

func parseBarDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", tushareDateLayout} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}
