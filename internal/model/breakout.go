package model

import "time"

// Classification is the ex-post verdict on a breakout.
type Classification int

const (
	Unresolved Classification = iota
	Profitable
	Unprofitable
)

func (c Classification) String() string {
	switch c {
	case Profitable:
		return "profitable"
	case Unprofitable:
		return "unprofitable"
	default:
		return "unresolved"
	}
}

// BreakoutRecord tracks one close above the prior bar's entry channel high.
type BreakoutRecord struct {
	Date           time.Time
	Price          float64
	N              float64
	Classification Classification
	MaxPrice       float64
	MinPrice       float64
}

// Resolved reports whether the breakout has been classified.
func (b BreakoutRecord) Resolved() bool {
	return b.Classification != Unresolved
}
