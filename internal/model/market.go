package model

import (
	"errors"
	"time"
)

// ErrDataUnavailable is returned when a provider yields no bars or fewer bars
// than the indicator warm-up window.
var ErrDataUnavailable = errors.New("data unavailable")

// OHLCV represents a single daily bar as delivered by a provider.
type OHLCV struct {
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PrevClose float64 // 0 when the source does not carry it
	Volume    float64
}

// Bar is an OHLCV with trailing indicators attached. Fields are only
// meaningful when Ready is true.
type Bar struct {
	OHLCV
	High20    float64
	Low20     float64
	High10    float64
	Low10     float64
	TrueRange float64
	N         float64 // mean true range over the volatility window
	Ready     bool
}

// Series holds the derived bars for one instrument.
type Series struct {
	Symbol    string
	Name      string
	Bars      []Bar
	FetchedAt time.Time
}
