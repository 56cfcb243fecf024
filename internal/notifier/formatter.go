package notifier

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"TurtleTrader/internal/backtest"
	"TurtleTrader/internal/model"
)

const dateLayout = "2006-01-02"

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}

func newTable(b *strings.Builder, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(b)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

// SummaryTable renders the account summary and the run metrics.
func SummaryTable(res *backtest.Result) string {
	snap := res.Snapshot
	m := res.Metrics
	b := &strings.Builder{}
	table := newTable(b, []string{"Field", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"Symbol", snap.Symbol},
		{"Name", snap.Name},
		{"Range", res.Start.Format(dateLayout) + " .. " + res.End.Format(dateLayout)},
		{"Bars", strconv.Itoa(res.Bars)},
		{"Initial capital", money(snap.InitialCapital)},
		{"Cash", money(snap.Cash)},
		{"Position value", money(snap.PositionValue)},
		{"Total value", money(snap.TotalValue)},
		{"Return", percent(m.Return)},
		{"Trades", fmt.Sprintf("%d (buy %d, sell %d)", len(snap.Trades), snap.BuyCount, snap.SellCount)},
		{"Open units", strconv.Itoa(len(snap.Positions))},
		{"Breakouts", strconv.Itoa(len(res.Breakouts))},
		{"Realized profit", money(m.RealizedProfit)},
		{"Win rate", fmt.Sprintf("%.1f%% (%d/%d)", m.WinRate*100, m.Wins, m.ClosedTrades)},
		{"Avg / stddev profit", money(m.AvgProfit) + " / " + money(m.StdDevProfit)},
		{"Best / worst profit", money(m.BestProfit) + " / " + money(m.WorstProfit)},
		{"Profit factor", ratio(m.ProfitFactor)},
		{"Turnover / fees", money(m.Turnover) + " / " + money(m.Commission)},
	})
	table.Render()
	return b.String()
}

// PositionsTable renders the open units.
func PositionsTable(positions []model.Position) string {
	b := &strings.Builder{}
	table := newTable(b, []string{"ID", "Entry date", "Entry", "Shares", "Stop", "N"})
	for _, p := range positions {
		table.Append([]string{
			strconv.Itoa(p.ID),
			p.EntryDate.Format(dateLayout),
			money(p.EntryPrice),
			printer.Sprintf("%d", p.Shares),
			money(p.StopLoss),
			fmt.Sprintf("%.3f", p.N),
		})
	}
	table.Render()
	return b.String()
}

// TradesTable renders the trade ledger in order.
func TradesTable(trades []model.Trade) string {
	b := &strings.Builder{}
	table := newTable(b, []string{"#", "Date", "Side", "Price", "Shares", "Fee", "Unit", "Type", "Stop", "Profit"})
	for _, t := range trades {
		typ, stop, profit := string(t.EntryType), money(t.StopLoss), ""
		if t.Action == model.ActionSell {
			typ, stop, profit = string(t.ExitType), "", money(t.Profit)
		}
		table.Append([]string{
			strconv.Itoa(t.Seq),
			t.Date.Format(dateLayout),
			string(t.Action),
			money(t.Price),
			printer.Sprintf("%d", t.Shares),
			money(t.Commission),
			strconv.Itoa(t.PositionID),
			typ,
			stop,
			profit,
		})
	}
	table.Render()
	return b.String()
}

// FormatSummary formats a run for Telegram.
func FormatSummary(res *backtest.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🐢 <b>Turtle backtest</b> | %s %s\n",
		html.EscapeString(res.Symbol), html.EscapeString(res.Name)))
	b.WriteString(fmt.Sprintf("run %s, finished %s\n\n", res.RunID.String()[:8], res.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString("<pre>" + html.EscapeString(SummaryTable(res)) + "</pre>")
	if len(res.Snapshot.Positions) > 0 {
		b.WriteString("\n📦 <b>Open units</b>\n")
		b.WriteString("<pre>" + html.EscapeString(PositionsTable(res.Snapshot.Positions)) + "</pre>")
	}
	return b.String()
}

// FormatTrades formats the last limit trades for Telegram. A limit of zero
// or less shows every trade. Older trades are dropped until the message
// fits in one Telegram message.
func FormatTrades(res *backtest.Result, limit int) string {
	all := res.Snapshot.Trades
	if len(all) == 0 {
		return "No trades in this run."
	}
	shown := all
	if limit > 0 && len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}
	for {
		out := tradesMessage(shown, len(all))
		n := utf8.RuneCountInString(out)
		if n <= maxMessageLen || len(shown) == 1 {
			return out
		}
		keep := min(len(shown)*maxMessageLen/n, len(shown)-1)
		shown = shown[len(shown)-max(keep, 1):]
	}
}

func tradesMessage(shown []model.Trade, total int) string {
	var b strings.Builder
	if len(shown) < total {
		b.WriteString(fmt.Sprintf("📒 <b>Last %d of %d trades</b>\n", len(shown), total))
	} else {
		b.WriteString(fmt.Sprintf("📒 <b>%d trades</b>\n", total))
	}
	b.WriteString("<pre>" + html.EscapeString(TradesTable(shown)) + "</pre>")
	return b.String()
}

// FormatError formats a failed run for Telegram.
func FormatError(err error) string {
	return "⚠️ <b>Backtest failed</b>\n" + html.EscapeString(err.Error())
}
