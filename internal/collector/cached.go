package collector

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/barstore"
	"TurtleTrader/internal/model"
)

// CachedFetcher serves bars from a local store when the requested range has
// been fetched before, and fills the store from Upstream otherwise.
//
// A range is only recorded as covered up to the last completed day, and an
// empty upstream answer records nothing, so days that were not yet published
// are asked for again on the next run.
type CachedFetcher struct {
	Upstream Fetcher
	Store    barstore.Store
	Now      func() time.Time // defaults to time.Now
}

// NewCachedFetcher wraps upstream with store.
func NewCachedFetcher(upstream Fetcher, store barstore.Store) *CachedFetcher {
	return &CachedFetcher{Upstream: upstream, Store: store}
}

func (f *CachedFetcher) Name() string { return f.Upstream.Name() }

func (f *CachedFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	source := f.Upstream.Name()
	covered, err := f.Store.Covered(ctx, source, symbol, start, end)
	if err != nil {
		log.Warnf("bar cache lookup failed: %v", err)
	} else if covered {
		bars, err := f.Store.Load(ctx, source, symbol, start, end)
		if err == nil {
			log.Debugf("served %d %s bars for %s from cache", len(bars), source, symbol)
			return bars, nil
		}
		log.Warnf("bar cache load failed: %v", err)
	}

	bars, err := f.Upstream.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		log.Debugf("%s returned no bars for %s, not caching", source, symbol)
		return bars, nil
	}
	coverEnd := f.coverEnd(end)
	if coverEnd.Before(dayOf(start)) {
		return bars, nil
	}
	if err := f.Store.Save(ctx, source, symbol, start, coverEnd, bars); err != nil {
		log.Warnf("bar cache save failed: %v", err)
	}
	return bars, nil
}

// coverEnd caps end to yesterday; today's bar may still be missing or moving.
func (f *CachedFetcher) coverEnd(end time.Time) time.Time {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	yesterday := dayOf(now()).AddDate(0, 0, -1)
	if end.After(yesterday) {
		return yesterday
	}
	return end
}

// StockName delegates to the upstream when it can resolve names.
func (f *CachedFetcher) StockName(ctx context.Context, symbol string) (string, error) {
	if namer, ok := f.Upstream.(Namer); ok {
		return namer.StockName(ctx, symbol)
	}
	return "", nil
}
