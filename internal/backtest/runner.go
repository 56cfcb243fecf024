package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/calculator"
	"TurtleTrader/internal/ledger"
	"TurtleTrader/internal/model"
	"TurtleTrader/internal/strategy"
)

// Source yields a derived bar series for a date range.
type Source interface {
	Collect(ctx context.Context, start, end time.Time) (*model.Series, error)
}

// Result is the outcome of one backtest run.
type Result struct {
	RunID      uuid.UUID
	Symbol     string
	Name       string
	Start      time.Time
	End        time.Time
	Bars       int
	LastClose  float64
	Snapshot   model.Snapshot
	Breakouts  []model.BreakoutRecord
	Metrics    Metrics
	FinishedAt time.Time
}

// Runner wires a bar source to a fresh ledger and driver for each run.
type Runner struct {
	Source         Source
	InitialCapital float64
	Params         ledger.Params
	Windows        calculator.Windows
	Start          time.Time
	End            time.Time
}

// Run collects the series and replays the strategy over it. Every call
// starts from a new account, so repeated runs over the same data agree.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New()
	logger := log.WithField("run", runID.String())

	series, err := r.Source.Collect(ctx, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	logger.Infof("analysing %s (%s) from %s to %s, %d bars",
		series.Symbol, series.Name, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), len(series.Bars))

	l, err := ledger.NewManager(r.InitialCapital, r.Params)
	if err != nil {
		return nil, fmt.Errorf("new ledger: %w", err)
	}
	d := strategy.NewDriver(l, r.Windows.Warmup())
	if err := d.Run(series.Bars); err != nil {
		return nil, fmt.Errorf("drive: %w", err)
	}

	snap := l.Snapshot(series.Symbol, series.Name)
	res := &Result{
		RunID:      runID,
		Symbol:     series.Symbol,
		Name:       series.Name,
		Start:      r.Start,
		End:        r.End,
		Bars:       len(series.Bars),
		Snapshot:   snap,
		Breakouts:  d.Tracker.Records(),
		Metrics:    ComputeMetrics(snap),
		FinishedAt: time.Now(),
	}
	if n := len(series.Bars); n > 0 {
		res.LastClose = series.Bars[n-1].Close
	}

	logger.WithFields(log.Fields{
		"trades":    len(snap.Trades),
		"open":      len(snap.Positions),
		"breakouts": len(res.Breakouts),
		"cash":      snap.Cash,
		"total":     snap.TotalValue,
	}).Info("backtest finished")
	return res, nil
}
