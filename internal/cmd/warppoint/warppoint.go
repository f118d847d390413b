// Package warppoint parses command configuration and starts the warp
// registry service.
package warppoint

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	entrypoint "github.com/dasjeff/warppoint/internal/platform/cmd"
	"github.com/dasjeff/warppoint/internal/services/warp/app"
)

const defaultDBPath = "warppoint.db"

// Config holds warppoint command configuration.
type Config struct {
	DBPath           string        `env:"WARPPOINT_DB_PATH" envDefault:"warppoint.db"`
	PoolSize         int           `env:"WARPPOINT_POOL_SIZE" envDefault:"4"`
	AcquireTimeout   time.Duration `env:"WARPPOINT_ACQUIRE_TIMEOUT" envDefault:"5s"`
	DefaultWarpLimit int           `env:"WARPPOINT_DEFAULT_WARP_LIMIT" envDefault:"5"`
	Cooldown         time.Duration `env:"WARPPOINT_TELEPORT_COOLDOWN" envDefault:"3s"`

	APIAddr            string   `env:"WARPPOINT_API_ADDR" envDefault:":8090"`
	APIKey             string   `env:"WARPPOINT_API_KEY"`
	AllowedIPs         []string `env:"WARPPOINT_API_ALLOWED_IPS"`
	RateLimitEnabled   bool     `env:"WARPPOINT_API_RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitPerMinute int      `env:"WARPPOINT_API_RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

// ParseConfig parses environment and flags into a Config. Flags bind to the
// config fields before the environment loads, so env values become the flag
// defaults and explicit flags win.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.APIAddr, "addr", cfg.APIAddr, "The API listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that must not reach the network. An empty
// API key is a hard error rather than a warning: the HTTP surface has no
// other authentication.
func (cfg Config) Validate() error {
	if cfg.APIKey == "" {
		return errors.New("WARPPOINT_API_KEY must be set")
	}
	return nil
}

// Run starts the warp registry service.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DBPath == defaultDBPath {
		log.Printf("using default database path %s", defaultDBPath)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWarppoint, func(ctx context.Context) error {
		return app.Run(ctx, app.Config{
			DBPath:             cfg.DBPath,
			PoolSize:           cfg.PoolSize,
			AcquireTimeout:     cfg.AcquireTimeout,
			DefaultWarpLimit:   cfg.DefaultWarpLimit,
			Cooldown:           cfg.Cooldown,
			APIAddr:            cfg.APIAddr,
			APIKey:             cfg.APIKey,
			AllowedIPs:         cfg.AllowedIPs,
			RateLimitEnabled:   cfg.RateLimitEnabled,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		})
	})
}
