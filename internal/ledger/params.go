package ledger

import (
	"fmt"
	"math"
)

// SizingBasis selects what one N is worth per share when sizing a unit.
type SizingBasis string

const (
	// SizingPoint values one N at PointValue per share (classic turtle unit).
	SizingPoint SizingBasis = "point"
	// SizingNotional values one N at N*price per share.
	SizingNotional SizingBasis = "notional"
)

// Params are the trading constants of the account.
type Params struct {
	UnitLimit      int
	RiskFraction   float64
	LotSize        int
	CommissionRate float64
	StopN          float64 // stop distance in N
	AddN           float64 // favourable move in N required to pyramid
	SizingBasis    SizingBasis
	PointValue     float64
}

// DefaultParams returns the reference constants. Units are sized on the
// notional value of one N.
func DefaultParams() Params {
	return Params{
		UnitLimit:      4,
		RiskFraction:   0.01,
		LotSize:        100,
		CommissionRate: 0.0003,
		StopN:          2,
		AddN:           0.5,
		SizingBasis:    SizingNotional,
		PointValue:     1,
	}
}

// Validate checks the params are usable.
func (p Params) Validate() error {
	switch {
	case p.UnitLimit <= 0:
		return fmt.Errorf("unit limit must be positive, got %d", p.UnitLimit)
	case p.RiskFraction <= 0 || p.RiskFraction > 1:
		return fmt.Errorf("risk fraction must be in (0,1], got %v", p.RiskFraction)
	case p.LotSize <= 0:
		return fmt.Errorf("lot size must be positive, got %d", p.LotSize)
	case p.CommissionRate < 0 || p.CommissionRate >= 1:
		return fmt.Errorf("commission rate must be in [0,1), got %v", p.CommissionRate)
	case p.StopN <= 0:
		return fmt.Errorf("stop multiple must be positive, got %v", p.StopN)
	case p.AddN < 0:
		return fmt.Errorf("add-on multiple must not be negative, got %v", p.AddN)
	case p.SizingBasis != SizingPoint && p.SizingBasis != SizingNotional:
		return fmt.Errorf("unknown sizing basis %q", p.SizingBasis)
	case p.SizingBasis == SizingPoint && p.PointValue <= 0:
		return fmt.Errorf("point value must be positive, got %v", p.PointValue)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
