package ledger

import (
	"errors"
	"fmt"
	"time"
)

// ErrTradeExecution matches every *ExecutionError.
var ErrTradeExecution = errors.New("trade execution failed")

var (
	ErrInvalidPrice      = errors.New("price must be positive and finite")
	ErrInvalidVolatility = errors.New("N must be positive and finite")
	ErrInvalidShares     = errors.New("shares must be a positive multiple of the lot size")
	ErrUnitLimit         = errors.New("unit limit reached")
	ErrInsufficientCash  = errors.New("insufficient cash")
	ErrPositionNotOpen   = errors.New("position is not open")
)

// ExecutionError describes an abandoned entry or exit. No state was changed.
type ExecutionError struct {
	Op    string // "enter" or "exit"
	Date  time.Time
	Price float64
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s at %.2f on %s: %v", e.Op, e.Price, e.Date.Format("2006-01-02"), e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrTradeExecution }
