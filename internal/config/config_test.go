package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScreener/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"data/sp500_companies.csv"}, cfg.Universe.Files)
	assert.Equal(t, ProviderYahoo, cfg.Provider.Name)
	assert.Equal(t, 100, cfg.Batch.ChunkSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Batch.ChunkDelay)
	assert.Equal(t, 2, *cfg.Provider.MaxRetries)
	assert.Equal(t, strategy.PresetBreakout, cfg.Preset)

	want, _ := strategy.Preset(strategy.PresetBreakout)
	assert.Equal(t, want, cfg.Thresholds)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_YAMLAndThresholdOverrides(t *testing.T) {
	path := writeConfig(t, `
universe:
  files: [sp500.csv, nyse.csv]
sector_pe_file: SectorPE.xlsx
preset: watchlist
provider:
  name: eodhd
  api_key: k
  max_retries: 0
  timeout: 5s
batch:
  chunk_size: 50
  chunk_delay: 2s
concurrency: 4
thresholds:
  max_debt_to_equity: 2.5
  technical:
    min_bars: 40
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"sp500.csv", "nyse.csv"}, cfg.Universe.Files)
	assert.Equal(t, 0, *cfg.Provider.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Batch.ChunkDelay)
	assert.Equal(t, 4, cfg.Concurrency)

	assert.Equal(t, 2.5, cfg.Thresholds.MaxDebtToEquity)
	assert.Equal(t, 40, cfg.Thresholds.Technical.MinBars)
	assert.Equal(t, 90, cfg.Thresholds.Technical.HistoryDays, "untouched preset fields survive")
	assert.Equal(t, strategy.ModeTolerant, cfg.Thresholds.Technical.Mode)
	assert.True(t, cfg.Thresholds.Sector.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "preset: watchlist\nconcurrency: 2\n")
	t.Setenv("SCREENER_PRESET", "sector_value")
	t.Setenv("SCREENER_CONCURRENCY", "12")
	t.Setenv("SCREENER_OUTPUT_DIR", "/tmp/screens")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, strategy.PresetSectorValue, cfg.Preset)
	assert.Equal(t, 12, cfg.Concurrency)
	assert.Equal(t, "/tmp/screens", cfg.Output.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.TelegramEnabled())
	assert.False(t, cfg.Thresholds.Technical.Enabled)
}

func TestLoad_BadEnvConcurrency(t *testing.T) {
	t.Setenv("SCREENER_CONCURRENCY", "many")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_UnknownPreset(t *testing.T) {
	_, err := Load(writeConfig(t, "preset: moonshot\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moonshot")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "universe: [\n"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCREENER_DOTENV_PROBE=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SCREENER_DOTENV_PROBE") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("SCREENER_DOTENV_PROBE"))
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "none.env")))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Provider.Name = ProviderEODHD
	assert.ErrorContains(t, cfg.Validate(), "api_key")

	cfg = base()
	cfg.Provider.Name = "bloomberg"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Preset = strategy.PresetWatchlist
	cfg.Thresholds, _ = strategy.Preset(strategy.PresetWatchlist)
	assert.ErrorContains(t, cfg.Validate(), "sector_pe_file")

	cfg = base()
	cfg.Telegram.BotToken = "tok"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Schedule.Cron = "0 0 18 * * 1-5"
	assert.ErrorContains(t, cfg.Validate(), "telegram")

	cfg = base()
	cfg.Thresholds.EPS.Years = 1
	assert.ErrorContains(t, cfg.Validate(), "thresholds")
}
