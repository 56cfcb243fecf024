package model

import "time"

// Action is the side of a fill.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// EntryType tags a BUY fill.
type EntryType string

const (
	EntryFirst EntryType = "first-entry"
	EntryAddOn EntryType = "add-on"
)

// ExitType tags a SELL fill.
type ExitType string

const (
	ExitStopLoss ExitType = "stop-loss"
	ExitChannel  ExitType = "10-day-breakout"
)

// Position is one open unit. Every pyramid add-on is its own Position.
type Position struct {
	ID         int
	EntryDate  time.Time
	EntryPrice float64
	Shares     int
	StopLoss   float64
	N          float64
}

// Trade is an immutable ledger entry appended on every fill.
type Trade struct {
	Seq        int
	Date       time.Time
	Action     Action
	Price      float64
	Shares     int
	Commission float64
	PositionID int

	// BUY only
	EntryType     EntryType
	StopLoss      float64
	TenDayLow     float64
	TwentyDayHigh float64

	// SELL only
	ExitType   ExitType
	EntryPrice float64
	Profit     float64
}

// Notional returns shares * price.
func (t Trade) Notional() float64 {
	return float64(t.Shares) * t.Price
}
