package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridwatt/exchange/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Market.FeeBps != 100 {
		t.Errorf("expected default fee 100 bps, got %d", cfg.Market.FeeBps)
	}
	if cfg.Market.MatchWindow != 10 {
		t.Errorf("expected default match window 10, got %d", cfg.Market.MatchWindow)
	}
	if cfg.Market.CustodyAccount == "" {
		t.Error("custody account must have a default")
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.toml")
	data := []byte(`
[server]
port = "9090"
read_timeout = "15s"

[market]
fee_bps = 250
min_amount = 10
max_amount = 5000
match_window = 25
custody_account = "vault.main"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("expected read timeout 15s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Market.FeeBps != 250 || cfg.Market.MatchWindow != 25 {
		t.Errorf("market section not applied: %+v", cfg.Market)
	}
	if cfg.Market.CustodyAccount != "vault.main" {
		t.Errorf("expected vault.main, got %s", cfg.Market.CustodyAccount)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRIDWATT_PORT", "7000")
	t.Setenv("GRIDWATT_FEE_BPS", "50")
	t.Setenv("GRIDWATT_MATCH_WINDOW", "100")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("expected env port 7000, got %s", cfg.Server.Port)
	}
	if cfg.Market.FeeBps != 50 {
		t.Errorf("expected env fee 50, got %d", cfg.Market.FeeBps)
	}
	if cfg.Market.MatchWindow != 100 {
		t.Errorf("expected env window 100, got %d", cfg.Market.MatchWindow)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"fee above 100%", func(c *config.Config) { c.Market.FeeBps = 10_001 }},
		{"negative fee", func(c *config.Config) { c.Market.FeeBps = -1 }},
		{"zero min amount", func(c *config.Config) { c.Market.MinAmount = 0 }},
		{"max below min", func(c *config.Config) { c.Market.MaxAmount = 0 }},
		{"zero window", func(c *config.Config) { c.Market.MatchWindow = 0 }},
		{"empty custody", func(c *config.Config) { c.Market.CustodyAccount = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
