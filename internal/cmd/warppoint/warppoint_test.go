package warppoint

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("warppoint", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.DBPath != "warppoint.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.PoolSize != 4 {
		t.Fatalf("PoolSize = %d", cfg.PoolSize)
	}
	if cfg.Cooldown != 3*time.Second {
		t.Fatalf("Cooldown = %s", cfg.Cooldown)
	}
	if !cfg.RateLimitEnabled || cfg.RateLimitPerMinute != 60 {
		t.Fatalf("rate limit = %v/%d", cfg.RateLimitEnabled, cfg.RateLimitPerMinute)
	}
}

func TestParseConfigFlagOverrides(t *testing.T) {
	fs := flag.NewFlagSet("warppoint", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", ":9999", "-db-path", "/tmp/test.db"})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.APIAddr != ":9999" {
		t.Fatalf("APIAddr = %q", cfg.APIAddr)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
}

func TestValidateRejectsEmptyAPIKey(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty api key accepted")
	}
	cfg.APIKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
