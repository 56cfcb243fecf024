package backtest

import (
	"math"

	"github.com/montanaflynn/stats"

	"TurtleTrader/internal/model"
)

// Metrics summarizes the closed trades of a run.
type Metrics struct {
	ClosedTrades   int
	Wins           int
	Losses         int
	WinRate        float64
	RealizedProfit float64
	AvgProfit      float64
	StdDevProfit   float64
	BestProfit     float64
	WorstProfit    float64
	ProfitFactor   float64 // gross profit over gross loss; +Inf without losses
	Turnover       float64 // traded notional, both sides
	Commission     float64
	Return         float64 // total value over initial capital, minus one
}

// ComputeMetrics derives Metrics from a snapshot. Only SELL trades carry a
// realized profit. A break-even sell is neither a win nor a loss.
func ComputeMetrics(snap model.Snapshot) Metrics {
	var m Metrics
	if snap.InitialCapital > 0 {
		m.Return = snap.TotalValue/snap.InitialCapital - 1
	}

	var profits []float64
	var grossWin, grossLoss float64
	for _, t := range snap.Trades {
		m.Turnover += t.Notional()
		m.Commission += t.Commission
		if t.Action != model.ActionSell {
			continue
		}
		profits = append(profits, t.Profit)
		switch {
		case t.Profit > 0:
			m.Wins++
			grossWin += t.Profit
		case t.Profit < 0:
			m.Losses++
			grossLoss -= t.Profit
		}
	}
	m.ClosedTrades = len(profits)
	if m.ClosedTrades == 0 {
		return m
	}

	m.WinRate = float64(m.Wins) / float64(m.ClosedTrades)
	m.RealizedProfit, _ = stats.Sum(profits)
	m.AvgProfit, _ = stats.Mean(profits)
	m.StdDevProfit, _ = stats.StandardDeviation(profits)
	m.BestProfit, _ = stats.Max(profits)
	m.WorstProfit, _ = stats.Min(profits)

	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossWin / grossLoss
	case grossWin > 0:
		m.ProfitFactor = math.Inf(1)
	}
	return m
}
