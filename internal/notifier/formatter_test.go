package notifier

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"TurtleTrader/internal/backtest"
	"TurtleTrader/internal/model"
)

func sampleResult() *backtest.Result {
	d := func(day int) time.Time { return time.Date(2023, 3, day, 0, 0, 0, 0, time.UTC) }
	trades := []model.Trade{
		{Seq: 1, Date: d(1), Action: model.ActionBuy, Price: 100, Shares: 2700, Commission: 81, PositionID: 1, EntryType: model.EntryFirst, StopLoss: 96},
		{Seq: 2, Date: d(2), Action: model.ActionBuy, Price: 101, Shares: 2700, Commission: 81.81, PositionID: 2, EntryType: model.EntryAddOn, StopLoss: 97},
		{Seq: 3, Date: d(3), Action: model.ActionSell, Price: 95, Shares: 2700, Commission: 76.95, PositionID: 1, ExitType: model.ExitStopLoss, EntryPrice: 100, Profit: -13576.95},
	}
	snap := model.Snapshot{
		Symbol:         "600611.SH",
		Name:           "Dazhong <A>",
		InitialCapital: 550000,
		Cash:           259000.24,
		Positions:      []model.Position{{ID: 2, EntryDate: d(2), EntryPrice: 101, Shares: 2700, StopLoss: 97, N: 2}},
		Trades:         trades,
		PositionValue:  272700,
		TotalValue:     531700.24,
		BuyCount:       2,
		SellCount:      1,
	}
	return &backtest.Result{
		RunID:      uuid.MustParse("8f14e45f-ceea-467a-9af0-1a2b3c4d5e6f"),
		Symbol:     snap.Symbol,
		Name:       snap.Name,
		Start:      d(1),
		End:        d(31),
		Bars:       21,
		Snapshot:   snap,
		Metrics:    backtest.ComputeMetrics(snap),
		FinishedAt: d(31),
	}
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable(sampleResult())
	for _, want := range []string{
		"600611.SH",
		"550,000.00",
		"259,000.24",
		"272,700.00",
		"531,700.24",
		"3 (buy 2, sell 1)",
		"2023-03-01 .. 2023-03-31",
		"-3.33%",
		"-13,576.95",
	} {
		assert.Contains(t, out, want)
	}
}

func TestTradesTable(t *testing.T) {
	out := TradesTable(sampleResult().Snapshot.Trades)
	assert.Contains(t, out, "first-entry")
	assert.Contains(t, out, "add-on")
	assert.Contains(t, out, "stop-loss")
	assert.Contains(t, out, "2,700")
	assert.Less(t, strings.Index(out, "first-entry"), strings.Index(out, "stop-loss"))
}

func TestFormatSummary_EscapesHTML(t *testing.T) {
	out := FormatSummary(sampleResult())
	assert.Contains(t, out, "Dazhong &lt;A&gt;")
	assert.NotContains(t, out, "<A>")
	assert.Contains(t, out, "run 8f14e45f")
	assert.Contains(t, out, "Open units")
}

func TestFormatTrades(t *testing.T) {
	res := sampleResult()
	out := FormatTrades(res, 2)
	assert.Contains(t, out, "Last 2 of 3 trades")
	assert.NotContains(t, out, "first-entry")
	assert.Contains(t, out, "stop-loss")

	assert.Contains(t, FormatTrades(res, 0), "3 trades")

	res.Snapshot.Trades = nil
	assert.Equal(t, "No trades in this run.", FormatTrades(res, 10))
}

func TestFormatTrades_FitsOneMessage(t *testing.T) {
	res := sampleResult()
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := make([]model.Trade, 500)
	for i := range trades {
		trades[i] = model.Trade{
			Seq: i + 1, Date: day.AddDate(0, 0, i), Action: model.ActionBuy, Price: 10,
			Shares: 2700, Commission: 8.1, PositionID: i + 1, EntryType: model.EntryFirst, StopLoss: 9.6,
		}
	}
	res.Snapshot.Trades = trades

	for _, limit := range []int{0, 200} {
		out := FormatTrades(res, limit)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), maxMessageLen)
		assert.Contains(t, out, "of 500 trades</b>")
		assert.True(t, strings.HasSuffix(out, "</pre>"))
		assert.Equal(t, 1, strings.Count(out, "<pre>"))
		assert.Contains(t, out, day.AddDate(0, 0, 499).Format(dateLayout), "newest trade kept")
		assert.NotContains(t, out, day.Format(dateLayout))
	}
}

func TestFormatError(t *testing.T) {
	assert.Contains(t, FormatError(errors.New("bad <data>")), "bad &lt;data&gt;")
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "1.50", ratio(1.5))
	assert.Equal(t, "inf", ratio(backtest.ComputeMetrics(model.Snapshot{Trades: []model.Trade{{Action: model.ActionSell, Profit: 1}}}).ProfitFactor))
}
