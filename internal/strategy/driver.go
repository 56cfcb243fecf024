package strategy

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/ledger"
	"TurtleTrader/internal/model"
)

// Driver runs the turtle rules over a bar series in a single forward pass.
type Driver struct {
	Ledger  *ledger.Manager
	Tracker *BreakoutTracker
	Warmup  int

	lastEntry *float64 // price of the most recent fill while a position is open
}

// NewDriver creates a Driver trading the given ledger. warmup is the minimum
// number of bars a series must hold.
func NewDriver(l *ledger.Manager, warmup int) *Driver {
	return &Driver{
		Ledger:  l,
		Tracker: NewBreakoutTracker(l.Params().StopN),
		Warmup:  warmup,
	}
}

// Run evaluates every bar whose indicators, and whose predecessor's
// indicators, are ready. It fails before touching the ledger when the series
// is too short or out of order.
func (d *Driver) Run(bars []model.Bar) error {
	if len(bars) == 0 || len(bars) < d.Warmup {
		return fmt.Errorf("%w: got %d bars, need at least %d", model.ErrDataUnavailable, len(bars), d.Warmup)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return fmt.Errorf("bars out of order at %s", bars[i].Date.Format("2006-01-02"))
		}
	}

	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		if !prev.Ready || !cur.Ready {
			continue
		}
		d.Step(prev, cur)
	}
	return nil
}

// Step applies one bar: breakout bookkeeping, then at most one entry
// (first entry on a breakout, otherwise a pyramid add-on), then exits.
func (d *Driver) Step(prev, cur model.Bar) {
	price := cur.Close
	d.Tracker.Update(price, cur)

	if price > prev.High20 {
		d.Tracker.Record(cur.Date, price, cur.N)
		log.WithFields(log.Fields{
			"date":  cur.Date.Format("2006-01-02"),
			"price": price,
			"high":  prev.High20,
		}).Debug("channel breakout")
		if d.Ledger.OpenCount() == 0 && d.Tracker.CanEnter() {
			d.enter(cur)
		}
	} else if d.Ledger.OpenCount() > 0 && d.lastEntry != nil && d.Ledger.CanAddUnit(price, *d.lastEntry, cur.N) {
		d.enter(cur)
	}

	d.Ledger.CheckExits(price, cur.Date, cur)
	if d.Ledger.OpenCount() == 0 {
		d.lastEntry = nil
	}
}

// LastEntryPrice returns the price of the latest fill of the open position.
func (d *Driver) LastEntryPrice() (float64, bool) {
	if d.lastEntry == nil {
		return 0, false
	}
	return *d.lastEntry, true
}

func (d *Driver) enter(bar model.Bar) {
	price := bar.Close
	shares := d.Ledger.PositionSize(price, bar.N)
	if shares == 0 {
		log.WithFields(log.Fields{
			"date":  bar.Date.Format("2006-01-02"),
			"price": price,
			"n":     bar.N,
		}).Debug("unit rounds to zero shares, skipped")
		return
	}
	_, err := d.Ledger.Enter(ledger.Entry{
		Date:          bar.Date,
		Price:         price,
		Shares:        shares,
		N:             bar.N,
		TenDayLow:     bar.Low10,
		TwentyDayHigh: bar.High20,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"op":     "enter",
			"date":   bar.Date.Format("2006-01-02"),
			"price":  price,
			"shares": shares,
		}).Warnf("entry abandoned: %v", err)
		return
	}
	d.lastEntry = &price
}
