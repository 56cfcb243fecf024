package barstore

import (
	"context"
	"time"

	"TurtleTrader/internal/model"
)

// Store caches raw daily bars per data source and symbol, together with the
// date ranges that were fetched in full.
type Store interface {
	// Covered reports whether [start, end] lies inside a range saved before.
	Covered(ctx context.Context, source, symbol string, start, end time.Time) (bool, error)
	// Load returns the cached bars in [start, end], ascending by date.
	Load(ctx context.Context, source, symbol string, start, end time.Time) ([]model.OHLCV, error)
	// Save stores bars and marks [start, end] as fetched.
	Save(ctx context.Context, source, symbol string, start, end time.Time, bars []model.OHLCV) error
	Close() error
}

const dateLayout = "2006-01-02"
