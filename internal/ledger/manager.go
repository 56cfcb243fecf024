package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/model"
)

// Manager owns the account: cash, open positions and the trade history.
// All mutation goes through Enter, Exit and CheckExits. A Manager is driven
// by a single backtest and is not safe for concurrent use.
type Manager struct {
	params         Params
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      []model.Position
	trades         []model.Trade
	lastID         int
}

// Entry describes a requested BUY fill.
type Entry struct {
	Date          time.Time
	Price         float64
	Shares        int
	N             float64
	TenDayLow     float64
	TwentyDayHigh float64
}

// NewManager creates a Manager funded with initialCapital.
func NewManager(initialCapital float64, params Params) (*Manager, error) {
	if !finitePositive(initialCapital) {
		return nil, fmt.Errorf("initial capital must be positive, got %v", initialCapital)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	capital := decimal.NewFromFloat(initialCapital)
	return &Manager{
		params:         params,
		initialCapital: capital,
		cash:           capital,
	}, nil
}

// Params returns the trading constants.
func (m *Manager) Params() Params { return m.params }

// InitialCapital returns the starting cash.
func (m *Manager) InitialCapital() float64 { return m.initialCapital.InexactFloat64() }

// Cash returns the current cash balance.
func (m *Manager) Cash() float64 { return m.cash.InexactFloat64() }

// OpenCount returns the number of open units.
func (m *Manager) OpenCount() int { return len(m.positions) }

// OpenPositions returns a copy of the open positions in entry order.
func (m *Manager) OpenPositions() []model.Position {
	out := make([]model.Position, len(m.positions))
	copy(out, m.positions)
	return out
}

// Trades returns a copy of the trade history.
func (m *Manager) Trades() []model.Trade {
	out := make([]model.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// LastEntry returns the most recently opened position that is still open.
func (m *Manager) LastEntry() (model.Position, bool) {
	if len(m.positions) == 0 {
		return model.Position{}, false
	}
	return m.positions[len(m.positions)-1], true
}

// PositionSize returns the number of shares for one unit, a multiple of the
// lot size, or 0 when a unit rounds to nothing. Risk per unit is
// cash*RiskFraction over the dollar value of one N. The result is capped to
// what cash can pay for, commission included.
func (m *Manager) PositionSize(price, n float64) int {
	if !finitePositive(price) || !finitePositive(n) {
		return 0
	}
	cash := m.cash.InexactFloat64()
	if cash <= 0 {
		return 0
	}

	dollarVol := n * m.params.PointValue
	if m.params.SizingBasis == SizingNotional {
		dollarVol = n * price
	}
	lot := float64(m.params.LotSize)
	lots := math.Floor(cash * m.params.RiskFraction / dollarVol / lot)

	affordable := math.Floor(cash / (price * lot * (1 + m.params.CommissionRate)))
	if lots > affordable {
		lots = affordable
	}
	if lots <= 0 {
		return 0
	}
	return int(lots) * m.params.LotSize
}

// CanAddUnit reports whether another unit may be pyramided on: the unit limit
// is not reached and price has moved at least AddN*N above lastEntryPrice.
func (m *Manager) CanAddUnit(price, lastEntryPrice, n float64) bool {
	if len(m.positions) >= m.params.UnitLimit {
		return false
	}
	return price-lastEntryPrice >= m.params.AddN*n
}

// Enter opens a new unit. On error nothing is changed.
func (m *Manager) Enter(e Entry) (model.Trade, error) {
	fail := func(err error) (model.Trade, error) {
		return model.Trade{}, &ExecutionError{Op: "enter", Date: e.Date, Price: e.Price, Err: err}
	}
	switch {
	case !finitePositive(e.Price):
		return fail(ErrInvalidPrice)
	case !finitePositive(e.N):
		return fail(ErrInvalidVolatility)
	case e.Shares <= 0 || e.Shares%m.params.LotSize != 0:
		return fail(fmt.Errorf("%w: %d", ErrInvalidShares, e.Shares))
	case len(m.positions) >= m.params.UnitLimit:
		return fail(ErrUnitLimit)
	}

	entryType := model.EntryFirst
	if len(m.positions) > 0 {
		entryType = model.EntryAddOn
	}
	stop := e.Price - m.params.StopN*e.N
	trade := model.Trade{
		Seq:           len(m.trades) + 1,
		Date:          e.Date,
		Action:        model.ActionBuy,
		Price:         e.Price,
		Shares:        e.Shares,
		Commission:    float64(e.Shares) * e.Price * m.params.CommissionRate,
		PositionID:    m.lastID + 1,
		EntryType:     entryType,
		StopLoss:      stop,
		TenDayLow:     e.TenDayLow,
		TwentyDayHigh: e.TwentyDayHigh,
	}
	cash := m.cash.Add(cashDelta(trade))
	if cash.IsNegative() {
		return fail(fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, cashDelta(trade).Neg().StringFixed(2), m.cash.StringFixed(2)))
	}

	m.lastID = trade.PositionID
	m.positions = append(m.positions, model.Position{
		ID:         trade.PositionID,
		EntryDate:  e.Date,
		EntryPrice: e.Price,
		Shares:     e.Shares,
		StopLoss:   stop,
		N:          e.N,
	})
	m.trades = append(m.trades, trade)
	m.cash = cash

	log.WithFields(log.Fields{
		"date":   e.Date.Format("2006-01-02"),
		"price":  e.Price,
		"shares": e.Shares,
		"stop":   stop,
		"type":   entryType,
	}).Info("entry filled")
	return trade, nil
}

// Exit closes the open position with the given ID. On error nothing is changed.
func (m *Manager) Exit(positionID int, date time.Time, price float64, exitType model.ExitType) (model.Trade, error) {
	fail := func(err error) (model.Trade, error) {
		return model.Trade{}, &ExecutionError{Op: "exit", Date: date, Price: price, Err: err}
	}
	if !finitePositive(price) {
		return fail(ErrInvalidPrice)
	}
	idx := -1
	for i, p := range m.positions {
		if p.ID == positionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fail(fmt.Errorf("%w: id %d", ErrPositionNotOpen, positionID))
	}

	pos := m.positions[idx]
	commission := float64(pos.Shares) * price * m.params.CommissionRate
	trade := model.Trade{
		Seq:        len(m.trades) + 1,
		Date:       date,
		Action:     model.ActionSell,
		Price:      price,
		Shares:     pos.Shares,
		Commission: commission,
		PositionID: pos.ID,
		ExitType:   exitType,
		EntryPrice: pos.EntryPrice,
		Profit:     float64(pos.Shares)*(price-pos.EntryPrice) - commission,
	}

	remaining := make([]model.Position, 0, len(m.positions)-1)
	remaining = append(remaining, m.positions[:idx]...)
	remaining = append(remaining, m.positions[idx+1:]...)

	m.positions = remaining
	m.trades = append(m.trades, trade)
	m.cash = m.cash.Add(cashDelta(trade))

	log.WithFields(log.Fields{
		"date":   date.Format("2006-01-02"),
		"price":  price,
		"shares": pos.Shares,
		"profit": trade.Profit,
		"type":   exitType,
	}).Info("exit filled")
	return trade, nil
}

// CheckExits evaluates every open position once against the bar and closes
// the ones that hit their stop (checked first) or the exit channel low.
// Decisions are taken on a snapshot of the open set before any exit is applied.
func (m *Manager) CheckExits(price float64, date time.Time, bar model.Bar) []model.Trade {
	type pending struct {
		id  int
		typ model.ExitType
	}
	var exits []pending
	for _, p := range m.OpenPositions() {
		switch {
		case price < p.StopLoss:
			exits = append(exits, pending{p.ID, model.ExitStopLoss})
		case price < bar.Low10:
			exits = append(exits, pending{p.ID, model.ExitChannel})
		}
	}

	var fills []model.Trade
	for _, e := range exits {
		t, err := m.Exit(e.id, date, price, e.typ)
		if err != nil {
			log.WithFields(log.Fields{
				"op":       "exit",
				"date":     date.Format("2006-01-02"),
				"price":    price,
				"position": e.id,
			}).Errorf("exit abandoned: %v", err)
			continue
		}
		fills = append(fills, t)
	}
	return fills
}

// Snapshot returns the read-only account view. Open positions are valued at
// their entry price.
func (m *Manager) Snapshot(symbol, name string) model.Snapshot {
	snap := model.Snapshot{
		Symbol:         symbol,
		Name:           name,
		InitialCapital: m.InitialCapital(),
		Cash:           m.Cash(),
		Positions:      m.OpenPositions(),
		Trades:         m.Trades(),
	}
	for _, p := range snap.Positions {
		snap.PositionValue += float64(p.Shares) * p.EntryPrice
	}
	snap.TotalValue = snap.Cash + snap.PositionValue
	for _, t := range snap.Trades {
		switch t.Action {
		case model.ActionBuy:
			snap.BuyCount++
		case model.ActionSell:
			snap.SellCount++
		}
	}
	return snap
}

// ReplayCash reconstructs cash by applying every trade to initialCapital with
// the same arithmetic the live account uses.
func ReplayCash(initialCapital float64, trades []model.Trade) float64 {
	cash := decimal.NewFromFloat(initialCapital)
	for _, t := range trades {
		cash = cash.Add(cashDelta(t))
	}
	return cash.InexactFloat64()
}

// cashDelta is the signed cash effect of a fill: buys pay notional plus
// commission, sells receive notional less commission.
func cashDelta(t model.Trade) decimal.Decimal {
	notional := decimal.NewFromFloat(t.Price).Mul(decimal.NewFromInt(int64(t.Shares)))
	fee := decimal.NewFromFloat(t.Commission)
	if t.Action == model.ActionBuy {
		return notional.Add(fee).Neg()
	}
	return notional.Sub(fee)
}
