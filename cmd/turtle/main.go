package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"TurtleTrader/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "turtle",
	Short:         "Backtest the turtle trend-following rules on one instrument",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs/config.yaml", "path to the YAML config (CONFIG_PATH overrides)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().String("log-level", "", "log level, overrides log_level")
	rootCmd.AddCommand(runCmd, watchCmd)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file and the YAML config, applies the log
// level and validates with validate.
func loadConfig(cmd *cobra.Command, validate func(*config.Config) error) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnv(envFile); err != nil {
		return nil, err
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.Debugf("config loaded from %s", cfgPath)
	return cfg, nil
}
