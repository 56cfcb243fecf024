package calculator

import (
	"fmt"

	"TurtleTrader/internal/model"
)

// Windows are the trailing lengths used for the channels and for N.
type Windows struct {
	Entry      int // breakout channel, 20
	Exit       int // exit channel, 10
	Volatility int // true range average, 20
}

// DefaultWindows returns the classic 20/10/20 setup.
func DefaultWindows() Windows {
	return Windows{Entry: 20, Exit: 10, Volatility: 20}
}

// Warmup is the number of bars needed before every indicator is defined.
func (w Windows) Warmup() int {
	n := w.Entry
	if w.Exit > n {
		n = w.Exit
	}
	if w.Volatility > n {
		n = w.Volatility
	}
	return n
}

// Validate rejects non-positive windows.
func (w Windows) Validate() error {
	if w.Entry <= 0 || w.Exit <= 0 || w.Volatility <= 0 {
		return fmt.Errorf("windows must be positive: entry=%d exit=%d volatility=%d", w.Entry, w.Exit, w.Volatility)
	}
	return nil
}

// Derive attaches trailing indicators to each bar. Every window includes the
// current bar. Bars before the longest window is filled are returned with
// Ready=false and must not be traded on.
func Derive(bars []model.OHLCV, w Windows) ([]model.Bar, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	out := make([]model.Bar, len(bars))
	trs := make([]float64, len(bars))
	for i, b := range bars {
		out[i].OHLCV = b
		trs[i] = TrueRange(b)
		out[i].TrueRange = trs[i]

		hist := bars[:i+1]
		if i+1 >= w.Entry {
			h, l, err := CalculateRange(hist, w.Entry)
			if err != nil {
				return nil, fmt.Errorf("entry channel at %s: %w", b.Date.Format("2006-01-02"), err)
			}
			out[i].High20, out[i].Low20 = h, l
		}
		if i+1 >= w.Exit {
			h, l, err := CalculateRange(hist, w.Exit)
			if err != nil {
				return nil, fmt.Errorf("exit channel at %s: %w", b.Date.Format("2006-01-02"), err)
			}
			out[i].High10, out[i].Low10 = h, l
		}
		if i+1 >= w.Volatility {
			n, err := CalculateSMA(trs[:i+1], w.Volatility)
			if err != nil {
				return nil, fmt.Errorf("volatility at %s: %w", b.Date.Format("2006-01-02"), err)
			}
			out[i].N = n
		}
		out[i].Ready = i+1 >= w.Warmup()
	}
	return out, nil
}
