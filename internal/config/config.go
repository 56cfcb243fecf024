package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"TurtleTrader/internal/calculator"
	"TurtleTrader/internal/ledger"
)

// ErrInvalid is returned by Validate for any unusable setting.
var ErrInvalid = errors.New("invalid config")

const dateLayout = "2006-01-02"

// Data providers.
const (
	ProviderTushare = "tushare"
	ProviderYahoo   = "yahoo"
	ProviderPolygon = "polygon"
	ProviderCSV     = "csv"
	ProviderMock    = "mock"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider      string `yaml:"provider"`
		BaseURL       string `yaml:"base_url"`
		Token         string `yaml:"token"`
		PolygonAPIKey string `yaml:"polygon_api_key"`
		CSVPath       string `yaml:"csv_path"`
		Symbol        string `yaml:"symbol"`
		Start         string `yaml:"start"`
		End           string `yaml:"end"`
	} `yaml:"data_source"`
	Backtest struct {
		InitialCapital   float64  `yaml:"initial_capital"`
		UnitLimit        int      `yaml:"unit_limit"`
		RiskFraction     float64  `yaml:"risk_fraction"`
		LotSize          int      `yaml:"lot_size"`
		CommissionRate   *float64 `yaml:"commission_rate"` // nil means default, 0 is free trading
		EntryWindow      int      `yaml:"entry_window"`
		ExitWindow       int      `yaml:"exit_window"`
		VolatilityWindow int      `yaml:"volatility_window"`
		StopN            float64  `yaml:"stop_n"`
		AddN             *float64 `yaml:"add_n"`
		SizingBasis      string   `yaml:"sizing_basis"`
		PointValue       float64  `yaml:"point_value"`
	} `yaml:"backtest"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// LoadEnv loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debugf("loaded environment from %s", path)
	return nil
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"TUSHARE_TOKEN":      &c.DataSource.Token,
		"POLYGON_API_KEY":    &c.DataSource.PolygonAPIKey,
		"TURTLE_SYMBOL":      &c.DataSource.Symbol,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"CRON_SCHEDULE":      &c.Schedule.Cron,
		"LOG_LEVEL":          &c.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INITIAL_CAPITAL: %w", err)
		}
		c.Backtest.InitialCapital = capital
	}
	return nil
}

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if ds.Provider == "" {
		ds.Provider = ProviderTushare
	}
	if ds.Symbol == "" {
		ds.Symbol = "600611.SH"
	}
	if ds.Start == "" {
		ds.Start = "2023-01-01"
	}
	if ds.End == "" {
		ds.End = "2024-11-20"
	}

	bt := &c.Backtest
	if bt.InitialCapital == 0 {
		bt.InitialCapital = 550000
	}
	w := calculator.DefaultWindows()
	if bt.EntryWindow == 0 {
		bt.EntryWindow = w.Entry
	}
	if bt.ExitWindow == 0 {
		bt.ExitWindow = w.Exit
	}
	if bt.VolatilityWindow == 0 {
		bt.VolatilityWindow = w.Volatility
	}
	p := ledger.DefaultParams()
	if bt.UnitLimit == 0 {
		bt.UnitLimit = p.UnitLimit
	}
	if bt.RiskFraction == 0 {
		bt.RiskFraction = p.RiskFraction
	}
	if bt.LotSize == 0 {
		bt.LotSize = p.LotSize
	}
	if bt.CommissionRate == nil {
		bt.CommissionRate = &p.CommissionRate
	}
	if bt.StopN == 0 {
		bt.StopN = p.StopN
	}
	if bt.AddN == nil {
		bt.AddN = &p.AddN
	}
	if bt.SizingBasis == "" {
		bt.SizingBasis = string(p.SizingBasis)
	}
	if bt.PointValue == 0 {
		bt.PointValue = p.PointValue
	}

	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 18 * * 1-5"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Range parses the backtest date range.
func (c *Config) Range() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, c.DataSource.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data_source.start: %v", ErrInvalid, err)
	}
	end, err = time.Parse(dateLayout, c.DataSource.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data_source.end: %v", ErrInvalid, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data_source.end %s is before start %s", ErrInvalid, c.DataSource.End, c.DataSource.Start)
	}
	return start, end, nil
}

// Windows returns the indicator windows.
func (c *Config) Windows() calculator.Windows {
	return calculator.Windows{
		Entry:      c.Backtest.EntryWindow,
		Exit:       c.Backtest.ExitWindow,
		Volatility: c.Backtest.VolatilityWindow,
	}
}

// LedgerParams returns the trading constants.
func (c *Config) LedgerParams() ledger.Params {
	bt := c.Backtest
	def := ledger.DefaultParams()
	return ledger.Params{
		UnitLimit:      bt.UnitLimit,
		RiskFraction:   bt.RiskFraction,
		LotSize:        bt.LotSize,
		CommissionRate: valueOr(bt.CommissionRate, def.CommissionRate),
		StopN:          bt.StopN,
		AddN:           valueOr(bt.AddN, def.AddN),
		SizingBasis:    ledger.SizingBasis(strings.ToLower(bt.SizingBasis)),
		PointValue:     bt.PointValue,
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Validate checks that the backtest can run with this configuration.
// Telegram settings are checked separately by ValidateWatch.
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("%w: backtest.initial_capital must be positive", ErrInvalid)
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}
	if err := c.Windows().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.LedgerParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}

	ds := c.DataSource
	if ds.Symbol == "" && ds.Provider != ProviderCSV {
		return fmt.Errorf("%w: data_source.symbol is required", ErrInvalid)
	}
	switch ds.Provider {
	case ProviderTushare:
		if ds.Token == "" {
			return fmt.Errorf("%w: data_source.token is required for tushare", ErrInvalid)
		}
	case ProviderPolygon:
		if ds.PolygonAPIKey == "" {
			return fmt.Errorf("%w: data_source.polygon_api_key is required for polygon", ErrInvalid)
		}
	case ProviderCSV:
		if ds.CSVPath == "" {
			return fmt.Errorf("%w: data_source.csv_path is required for csv", ErrInvalid)
		}
	case ProviderYahoo, ProviderMock:
	default:
		return fmt.Errorf("%w: unknown data_source.provider %q", ErrInvalid, ds.Provider)
	}
	return nil
}

// ValidateWatch additionally requires the Telegram settings watch mode
// pushes to.
func (c *Config) ValidateWatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", ErrInvalid)
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: telegram.chat_id is required", ErrInvalid)
	}
	return nil
}
