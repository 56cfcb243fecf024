package barstore

import (
	"context"
	"time"

	"TurtleTrader/internal/model"
)

// NoopStore is a no-op implementation used when SQLite is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) Covered(context.Context, string, string, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (n *NoopStore) Load(context.Context, string, string, time.Time, time.Time) ([]model.OHLCV, error) {
	return nil, nil
}

func (n *NoopStore) Save(context.Context, string, string, time.Time, time.Time, []model.OHLCV) error {
	return nil
}

func (n *NoopStore) Close() error { return nil }
