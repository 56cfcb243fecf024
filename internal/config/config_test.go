package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TurtleTrader/internal/ledger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderTushare, cfg.DataSource.Provider)
	assert.Equal(t, "600611.SH", cfg.DataSource.Symbol)
	assert.Equal(t, 550000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, "0 0 18 * * 1-5", cfg.Schedule.Cron)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ledger.DefaultParams(), cfg.LedgerParams())

	w := cfg.Windows()
	assert.Equal(t, 20, w.Entry)
	assert.Equal(t, 10, w.Exit)
	assert.Equal(t, 20, w.Volatility)

	start, end, err := cfg.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC), end)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
data_source:
  provider: yahoo
  symbol: AAPL
  start: "2022-01-03"
  end: "2022-12-30"
backtest:
  initial_capital: 100000
  unit_limit: 3
  sizing_basis: POINT
`)
	t.Setenv("TURTLE_SYMBOL", "MSFT")
	t.Setenv("INITIAL_CAPITAL", "250000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderYahoo, cfg.DataSource.Provider)
	assert.Equal(t, "MSFT", cfg.DataSource.Symbol)
	assert.Equal(t, 250000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, "debug", cfg.LogLevel)

	p := cfg.LedgerParams()
	assert.Equal(t, 3, p.UnitLimit)
	assert.Equal(t, ledger.SizingPoint, p.SizingBasis)
	assert.Equal(t, 100, p.LotSize)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitZeroes(t *testing.T) {
	path := writeConfig(t, `
data_source:
  provider: mock
backtest:
  commission_rate: 0
  add_n: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	p := cfg.LedgerParams()
	assert.Zero(t, p.CommissionRate)
	assert.Zero(t, p.AddN)
	assert.Equal(t, ledger.DefaultParams().StopN, p.StopN)

	t.Run("omitted keys keep defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "backtest:\n  unit_limit: 2\n"))
		require.NoError(t, err)
		p := cfg.LedgerParams()
		assert.Equal(t, 0.0003, p.CommissionRate)
		assert.Equal(t, 0.5, p.AddN)
	})
}

func TestLoad_BadInputs(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "backtest: [1, 2"))
		assert.Error(t, err)
	})
	t.Run("bad capital env", func(t *testing.T) {
		t.Setenv("INITIAL_CAPITAL", "lots")
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		cfg.DataSource.Token = "token"
		return cfg
	}

	require.NoError(t, base(t).Validate())

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative capital", func(c *Config) { c.Backtest.InitialCapital = -1 }},
		{"reversed range", func(c *Config) { c.DataSource.Start, c.DataSource.End = "2024-01-02", "2024-01-01" }},
		{"bad date", func(c *Config) { c.DataSource.Start = "01/01/2024" }},
		{"risk above one", func(c *Config) { c.Backtest.RiskFraction = 2 }},
		{"negative window", func(c *Config) { c.Backtest.ExitWindow = -10 }},
		{"unknown sizing", func(c *Config) { c.Backtest.SizingBasis = "kelly" }},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"tushare without token", func(c *Config) { c.DataSource.Token = "" }},
		{"polygon without key", func(c *Config) { c.DataSource.Provider = ProviderPolygon }},
		{"csv without path", func(c *Config) { c.DataSource.Provider = ProviderCSV }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base(t)
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidateWatch(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.DataSource.Provider = ProviderMock
	require.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.ValidateWatch(), ErrInvalid)

	cfg.Telegram.BotToken = "bot"
	cfg.Telegram.ChatID = "42"
	assert.NoError(t, cfg.ValidateWatch())
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TURTLE_TEST_ONLY=from-dotenv\n"), 0o644))
	t.Setenv("TURTLE_TEST_ONLY", "")
	os.Unsetenv("TURTLE_TEST_ONLY")
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("TURTLE_TEST_ONLY"))
}
