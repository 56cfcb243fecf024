package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"TurtleTrader/internal/config"
	"TurtleTrader/internal/notifier"
	"TurtleTrader/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the backtest on a schedule and answer Telegram commands",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, (*config.Config).ValidateWatch)
		if err != nil {
			return err
		}
		log.Info("TurtleTrader watch starting...")

		store := newStore(cfg, true)
		defer store.Close()

		runner, err := newRunner(cfg, store)
		if err != nil {
			return err
		}

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

		// Context for graceful shutdown
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sched := scheduler.NewScheduler(ctx, runner, tn)
		if err := sched.Register(cfg.Schedule.Cron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info("RUN_ON_START enabled, running backtest now")
			go sched.RunNow()
		}

		log.Infof("watching %s on %q. Press Ctrl+C to stop.", cfg.DataSource.Symbol, cfg.Schedule.Cron)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			log.Info("shutdown signal received, stopping...")
		case <-ctx.Done():
		}
		cancel()
		return nil
	},
}
