package strategy

import (
	"time"

	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/model"
)

// BreakoutTracker keeps the append-only history of entry-channel breakouts
// and classifies each one from the price action that follows it.
type BreakoutTracker struct {
	StopN   float64 // adverse move, in N, that marks a breakout unprofitable
	records []*model.BreakoutRecord
	current *model.BreakoutRecord
}

// NewBreakoutTracker creates an empty tracker.
func NewBreakoutTracker(stopN float64) *BreakoutTracker {
	return &BreakoutTracker{StopN: stopN}
}

// Record appends a new unresolved breakout and makes it the current one.
func (t *BreakoutTracker) Record(date time.Time, price, n float64) model.BreakoutRecord {
	rec := &model.BreakoutRecord{
		Date:     date,
		Price:    price,
		N:        n,
		MaxPrice: price,
		MinPrice: price,
	}
	t.records = append(t.records, rec)
	t.current = rec
	return *rec
}

// Update feeds the close of a new bar to the current breakout. The first
// verdict sticks: unprofitable on a StopN*N adverse move (checked first),
// profitable on a close below the exit channel low.
func (t *BreakoutTracker) Update(price float64, bar model.Bar) {
	b := t.current
	if b == nil {
		return
	}
	if price > b.MaxPrice {
		b.MaxPrice = price
	}
	if price < b.MinPrice {
		b.MinPrice = price
	}
	if b.Resolved() {
		return
	}

	switch {
	case price <= b.Price-t.StopN*b.N:
		b.Classification = model.Unprofitable
	case price < bar.Low10:
		b.Classification = model.Profitable
	default:
		return
	}
	log.WithFields(log.Fields{
		"breakout": b.Date.Format("2006-01-02"),
		"date":     bar.Date.Format("2006-01-02"),
		"price":    price,
	}).Infof("breakout resolved %s", b.Classification)
}

// CanEnter reports whether a new first entry is allowed. Walking back from
// the breakout before the current one, the first resolved breakout decides:
// entries are refused after a profitable one.
func (t *BreakoutTracker) CanEnter() bool {
	if len(t.records) == 0 {
		return true
	}
	for i := len(t.records) - 2; i >= 0; i-- {
		if t.records[i].Resolved() {
			return t.records[i].Classification == model.Unprofitable
		}
	}
	return true
}

// Current returns the most recent breakout, if any.
func (t *BreakoutTracker) Current() (model.BreakoutRecord, bool) {
	if t.current == nil {
		return model.BreakoutRecord{}, false
	}
	return *t.current, true
}

// Records returns a copy of every breakout in order.
func (t *BreakoutTracker) Records() []model.BreakoutRecord {
	out := make([]model.BreakoutRecord, len(t.records))
	for i, r := range t.records {
		out[i] = *r
	}
	return out
}
