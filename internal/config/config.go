package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockScreener/internal/strategy"
)

// Provider names.
const (
	ProviderYahoo = "yahoo"
	ProviderEODHD = "eodhd"
)

// ProviderConfig selects and tunes the reference data provider.
type ProviderConfig struct {
	Name          string        `yaml:"name"`
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    *int          `yaml:"max_retries"`
	Backoff       time.Duration `yaml:"backoff"`
}

// Config holds all application configuration.
type Config struct {
	Universe struct {
		Files []string `yaml:"files"`
	} `yaml:"universe"`
	SectorPEFile string `yaml:"sector_pe_file"`
	Output       struct {
		Dir   string `yaml:"dir"`
		Label string `yaml:"label"`
	} `yaml:"output"`
	Provider ProviderConfig `yaml:"provider"`
	Batch    struct {
		ChunkSize  int           `yaml:"chunk_size"`
		ChunkDelay time.Duration `yaml:"chunk_delay"`
		Workers    int           `yaml:"workers"`
	} `yaml:"batch"`
	Concurrency int    `yaml:"concurrency"`
	Preset      string `yaml:"preset"`
	// ThresholdOverrides is decoded over the preset, so only the fields it
	// names change.
	ThresholdOverrides yaml.Node           `yaml:"thresholds"`
	Thresholds         strategy.Thresholds `yaml:"-"`
	Telegram           struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads an optional .env file, then config from a YAML file, then
// applies environment variable overrides, preset thresholds and defaults.
// A missing YAML file yields the defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

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

	th, err := strategy.Preset(cfg.Preset)
	if err != nil {
		return nil, err
	}
	if !cfg.ThresholdOverrides.IsZero() {
		if err := cfg.ThresholdOverrides.Decode(&th); err != nil {
			return nil, fmt.Errorf("parse thresholds: %w", err)
		}
	}
	cfg.Thresholds = th

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCREENER_PRESET"); v != "" {
		c.Preset = v
	}
	if v := os.Getenv("SCREENER_PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SCREENER_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("SCREENER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREENER_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Universe.Files) == 0 {
		c.Universe.Files = []string{"data/sp500_companies.csv"}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.Label == "" {
		c.Output.Label = "Screened Stocks"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderYahoo
	}
	if c.Provider.RatePerSecond == 0 {
		c.Provider.RatePerSecond = 5
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 20 * time.Second
	}
	if c.Provider.MaxRetries == nil {
		n := 2
		c.Provider.MaxRetries = &n
	}
	if c.Provider.Backoff == 0 {
		c.Provider.Backoff = 500 * time.Millisecond
	}
	if c.Batch.ChunkSize == 0 {
		c.Batch.ChunkSize = 100
	}
	if c.Batch.ChunkDelay == 0 {
		c.Batch.ChunkDelay = 100 * time.Millisecond
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 16
	}
	if c.Preset == "" {
		c.Preset = strategy.DefaultPreset
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// TelegramEnabled reports whether run summaries are sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Universe.Files) == 0 {
		return errors.New("universe.files is required")
	}
	switch c.Provider.Name {
	case ProviderYahoo:
	case ProviderEODHD:
		if c.Provider.APIKey == "" {
			return errors.New("provider.api_key (or EODHD_API_KEY) is required for eodhd")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.Provider.RatePerSecond < 0 {
		return errors.New("provider.rate_per_second must not be negative")
	}
	if c.Provider.MaxRetries != nil && *c.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries must not be negative")
	}
	if c.Batch.ChunkSize < 0 || c.Batch.ChunkDelay < 0 {
		return errors.New("batch.chunk_size and batch.chunk_delay must not be negative")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	if c.Thresholds.NeedsSectorTable() && c.SectorPEFile == "" {
		return fmt.Errorf("preset %q needs sector_pe_file", c.Preset)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Schedule.Cron != "" && !c.TelegramEnabled() {
		return errors.New("schedule.cron requires telegram to be configured")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	return nil
}
