package calculator

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"TurtleTrader/internal/model"
)

var errWindow = errors.New("window must be positive")

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errWindow
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	return stats.Mean(values[len(values)-period:])
}

// CalculateRange returns the highest high and lowest low of the last period bars.
func CalculateRange(bars []model.OHLCV, period int) (high, low float64, err error) {
	if period <= 0 {
		return 0, 0, errWindow
	}
	if len(bars) < period {
		return 0, 0, errors.New("not enough data for range calculation")
	}
	highs := make([]float64, period)
	lows := make([]float64, period)
	for i, b := range bars[len(bars)-period:] {
		highs[i] = b.High
		lows[i] = b.Low
	}
	if high, err = stats.Max(highs); err != nil {
		return 0, 0, err
	}
	if low, err = stats.Min(lows); err != nil {
		return 0, 0, err
	}
	return high, low, nil
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// Without a previous close it degrades to high-low.
func TrueRange(b model.OHLCV) float64 {
	tr := b.High - b.Low
	if b.PrevClose == 0 {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(b.High-b.PrevClose), math.Abs(b.Low-b.PrevClose)))
}
