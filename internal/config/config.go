// Package config defines the exchange engine configuration and its loading
// rules: built-in defaults, an optional TOML file, then GRIDWATT_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Market   MarketConfig   `toml:"market"`
	Chain    ChainConfig    `toml:"chain"`
}

// ServerConfig holds the HTTP listener parameters.
type ServerConfig struct {
	Port            string   `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Duration wraps time.Duration so the TOML decoder can parse duration
// strings like "5m" or "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DatabaseConfig holds the PostgreSQL connection string. Empty means the
// in-memory store.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig holds the cache connection string and TTL. Empty URL disables
// the cache layer.
type RedisConfig struct {
	URL string   `toml:"url"`
	TTL Duration `toml:"ttl"`
}

// MarketConfig holds the trading parameters.
type MarketConfig struct {
	FeeBps         int64  `toml:"fee_bps"`         // platform fee, basis points
	MinAmount      int64  `toml:"min_amount"`      // smallest listable kWh
	MaxAmount      int64  `toml:"max_amount"`      // largest listable kWh
	MatchWindow    uint64 `toml:"match_window"`    // listing ids scanned by auto-match
	CustodyAccount string `toml:"custody_account"` // escrow holding account
}

// ChainConfig holds the ordering-counter parameters.
type ChainConfig struct {
	StartHeight  uint64   `toml:"start_height"`
	TickInterval Duration `toml:"tick_interval"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     Duration{10 * time.Second},
			WriteTimeout:    Duration{10 * time.Second},
			ShutdownTimeout: Duration{5 * time.Second},
		},
		Redis: RedisConfig{
			TTL: Duration{30 * time.Second},
		},
		Market: MarketConfig{
			FeeBps:         100, // 1%
			MinAmount:      1,
			MaxAmount:      1_000_000,
			MatchWindow:    10,
			CustodyAccount: "exchange.custody",
		},
		Chain: ChainConfig{
			StartHeight:  1,
			TickInterval: Duration{time.Second},
		},
	}
}

// Load reads the TOML file at path (skipped when path is empty), merges it
// on top of the defaults, applies GRIDWATT_* environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Market.FeeBps < 0 || c.Market.FeeBps > 10_000 {
		return fmt.Errorf("market.fee_bps must be within [0, 10000], got %d", c.Market.FeeBps)
	}
	if c.Market.MinAmount < 1 {
		return fmt.Errorf("market.min_amount must be at least 1, got %d", c.Market.MinAmount)
	}
	if c.Market.MaxAmount < c.Market.MinAmount {
		return fmt.Errorf("market.max_amount %d below market.min_amount %d",
			c.Market.MaxAmount, c.Market.MinAmount)
	}
	if c.Market.MatchWindow == 0 {
		return fmt.Errorf("market.match_window must be positive")
	}
	if c.Market.CustodyAccount == "" {
		return fmt.Errorf("market.custody_account must be set")
	}
	return nil
}

// applyEnvOverrides reads well-known GRIDWATT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject deploy-time values without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "GRIDWATT_PORT")
	setStr(&cfg.Database.URL, "GRIDWATT_DATABASE_URL")
	setStr(&cfg.Redis.URL, "GRIDWATT_REDIS_URL")
	setDuration(&cfg.Redis.TTL, "GRIDWATT_REDIS_TTL")

	setInt64(&cfg.Market.FeeBps, "GRIDWATT_FEE_BPS")
	setInt64(&cfg.Market.MinAmount, "GRIDWATT_MIN_AMOUNT")
	setInt64(&cfg.Market.MaxAmount, "GRIDWATT_MAX_AMOUNT")
	setUint64(&cfg.Market.MatchWindow, "GRIDWATT_MATCH_WINDOW")
	setStr(&cfg.Market.CustodyAccount, "GRIDWATT_CUSTODY_ACCOUNT")

	setUint64(&cfg.Chain.StartHeight, "GRIDWATT_CHAIN_START_HEIGHT")
	setDuration(&cfg.Chain.TickInterval, "GRIDWATT_CHAIN_TICK_INTERVAL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
