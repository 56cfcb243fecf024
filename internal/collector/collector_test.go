package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TurtleTrader/internal/calculator"
	"TurtleTrader/internal/model"
)

func d(m time.Month, day int) time.Time {
	return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	raw := []model.OHLCV{
		{Date: d(1, 4), High: 11, Low: 9, Close: 10},
		{Date: d(1, 2), High: 11, Low: 9, Close: 8},
		{Date: d(1, 3), High: 11, Low: 9, Close: 9, PrevClose: 7.5},
		{Date: d(1, 2).Add(15 * time.Hour), High: 11, Low: 9, Close: 8.5}, // same day, later wins
		{Date: d(1, 5), High: 9, Low: 11, Close: 10},                      // high below low
		{Date: d(1, 6), High: 11, Low: 9, Close: 0},                       // no close
		{Date: d(2, 1), High: 11, Low: 9, Close: 10},                      // out of range
	}

	bars := Normalize(raw, d(1, 1), d(1, 31))
	require.Len(t, bars, 3)
	assert.Equal(t, d(1, 2), bars[0].Date)
	assert.Equal(t, 8.5, bars[0].Close)
	assert.Zero(t, bars[0].PrevClose)
	assert.Equal(t, 7.5, bars[1].PrevClose, "source value kept")
	assert.Equal(t, 9.0, bars[2].PrevClose, "filled from prior close")
}

func TestNormalize_InclusiveRange(t *testing.T) {
	raw := []model.OHLCV{
		{Date: d(1, 1), High: 1, Low: 1, Close: 1},
		{Date: d(1, 31), High: 1, Low: 1, Close: 1},
	}
	assert.Len(t, Normalize(raw, d(1, 1), d(1, 31)), 2)
}

func TestCollect(t *testing.T) {
	ctx := context.Background()
	w := calculator.DefaultWindows()

	t.Run("derives a ready series", func(t *testing.T) {
		c := NewCollector(&MockFetcher{Price: 10, Display: "Dazhong"}, "600611.SH", w)
		s, err := c.Collect(ctx, d(1, 1), d(6, 30))
		require.NoError(t, err)
		assert.Equal(t, "600611.SH", s.Symbol)
		assert.Equal(t, "Dazhong", s.Name)
		require.Greater(t, len(s.Bars), w.Warmup())
		assert.False(t, s.Bars[w.Warmup()-2].Ready)
		assert.True(t, s.Bars[w.Warmup()-1].Ready)
		for i := 1; i < len(s.Bars); i++ {
			assert.True(t, s.Bars[i-1].Date.Before(s.Bars[i].Date))
		}
	})

	t.Run("name falls back to symbol", func(t *testing.T) {
		c := NewCollector(&MockFetcher{Price: 10}, "600611.SH", w)
		s, err := c.Collect(ctx, d(1, 1), d(6, 30))
		require.NoError(t, err)
		assert.Equal(t, "600611.SH", s.Name)
	})

	t.Run("too few bars", func(t *testing.T) {
		c := NewCollector(&MockFetcher{Price: 10}, "600611.SH", w)
		_, err := c.Collect(ctx, d(1, 1), d(1, 20))
		assert.ErrorIs(t, err, model.ErrDataUnavailable)
	})

	t.Run("fetch failure", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewCollector(&MockFetcher{Err: boom}, "600611.SH", w)
		_, err := c.Collect(ctx, d(1, 1), d(6, 30))
		assert.ErrorIs(t, err, model.ErrDataUnavailable)
		assert.ErrorIs(t, err, boom)
	})
}

func TestGenerateMockBars_Weekdays(t *testing.T) {
	bars := generateMockBars(100, d(1, 1), d(1, 31))
	require.NotEmpty(t, bars)
	for _, b := range bars {
		wd := b.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
		assert.GreaterOrEqual(t, b.High, b.Low)
	}
	assert.Zero(t, bars[0].PrevClose)
	assert.Equal(t, bars[0].Close, bars[1].PrevClose)
}
