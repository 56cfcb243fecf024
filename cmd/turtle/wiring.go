package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/backtest"
	"TurtleTrader/internal/barstore"
	"TurtleTrader/internal/collector"
	"TurtleTrader/internal/config"
)

// newFetcher picks the data provider named in the config.
func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case config.ProviderTushare:
		return collector.NewTushareFetcher(ds.BaseURL, ds.Token, cfg.Proxy), nil
	case config.ProviderYahoo:
		return collector.NewYahooFetcher(cfg.Proxy), nil
	case config.ProviderPolygon:
		return collector.NewPolygonFetcher(ds.PolygonAPIKey), nil
	case config.ProviderCSV:
		return collector.NewCSVFetcher(ds.CSVPath), nil
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 10, Display: "Mock " + ds.Symbol}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalid, ds.Provider)
	}
}

// isRemote reports whether provider fetches over the network. Local files
// and generated data are read directly so edits to them are never masked.
func isRemote(provider string) bool {
	switch provider {
	case config.ProviderTushare, config.ProviderYahoo, config.ProviderPolygon:
		return true
	}
	return false
}

// newStore opens the SQLite bar cache, falling back to no caching.
func newStore(cfg *config.Config, useCache bool) barstore.Store {
	if !useCache || cfg.Database.SQLitePath == "" {
		return barstore.NewNoopStore()
	}
	s, err := barstore.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Warnf("init sqlite bar store failed, using noop: %v", err)
		return barstore.NewNoopStore()
	}
	return s
}

// newRunner wires fetcher, cache and collector into a backtest runner.
func newRunner(cfg *config.Config, store barstore.Store) (*backtest.Runner, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("data source: %s", fetcher.Name())
	if _, noop := store.(*barstore.NoopStore); !noop && isRemote(cfg.DataSource.Provider) {
		fetcher = collector.NewCachedFetcher(fetcher, store)
	}

	start, end, err := cfg.Range()
	if err != nil {
		return nil, err
	}
	windows := cfg.Windows()
	return &backtest.Runner{
		Source:         collector.NewCollector(fetcher, cfg.DataSource.Symbol, windows),
		InitialCapital: cfg.Backtest.InitialCapital,
		Params:         cfg.LedgerParams(),
		Windows:        windows,
		Start:          start,
		End:            end,
	}, nil
}
