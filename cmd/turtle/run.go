package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"TurtleTrader/internal/config"
	"TurtleTrader/internal/notifier"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest and print the summary and trade ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, func(c *config.Config) error {
			applyRunFlags(cmd, c)
			return c.Validate()
		})
		if err != nil {
			return err
		}

		noCache, _ := cmd.Flags().GetBool("no-cache")
		store := newStore(cfg, !noCache)
		defer store.Close()

		runner, err := newRunner(cfg, store)
		if err != nil {
			return err
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, notifier.SummaryTable(res))
		if len(res.Snapshot.Positions) > 0 {
			fmt.Fprintln(out, "\nOpen units")
			fmt.Fprint(out, notifier.PositionsTable(res.Snapshot.Positions))
		}
		if hide, _ := cmd.Flags().GetBool("no-trades"); !hide {
			fmt.Fprintln(out, "\nTrades")
			fmt.Fprint(out, notifier.TradesTable(res.Snapshot.Trades))
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.String("symbol", "", "instrument code, overrides data_source.symbol")
	f.String("provider", "", "data provider: tushare, yahoo, polygon, csv or mock")
	f.String("start", "", "first date, YYYY-MM-DD")
	f.String("end", "", "last date, YYYY-MM-DD")
	f.Float64("capital", 0, "initial capital, overrides backtest.initial_capital")
	f.Bool("no-cache", false, "bypass the SQLite bar cache")
	f.Bool("no-trades", false, "omit the trade ledger")
	f.Duration("timeout", 2*time.Minute, "overall fetch and run timeout")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	set := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	set("symbol", &cfg.DataSource.Symbol)
	set("provider", &cfg.DataSource.Provider)
	set("start", &cfg.DataSource.Start)
	set("end", &cfg.DataSource.End)
	if f.Changed("capital") {
		cfg.Backtest.InitialCapital, _ = f.GetFloat64("capital")
	}
}
