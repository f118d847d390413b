// Package app assembles the warp registry runtime: storage, cache,
// orchestrator, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dasjeff/warppoint/internal/services/warp/api"
	"github.com/dasjeff/warppoint/internal/services/warp/cache"
	"github.com/dasjeff/warppoint/internal/services/warp/ratelimit"
	"github.com/dasjeff/warppoint/internal/services/warp/service"
	"github.com/dasjeff/warppoint/internal/services/warp/storage/sqlite"
)

// Config holds the assembled runtime settings.
type Config struct {
	DBPath           string
	PoolSize         int
	AcquireTimeout   time.Duration
	DefaultWarpLimit int
	Cooldown         time.Duration

	APIAddr            string
	APIKey             string
	AllowedIPs         []string
	RateLimitEnabled   bool
	RateLimitPerMinute int
}

// Run opens the store, stands up the registry service, and serves the HTTP
// surface until the context ends. The store is closed on the way out.
func Run(ctx context.Context, cfg Config) error {
	if cfg.DBPath == "" {
		return errors.New("database path is required")
	}

	store, err := sqlite.Open(cfg.DBPath, sqlite.Options{
		PoolSize:         cfg.PoolSize,
		AcquireTimeout:   cfg.AcquireTimeout,
		DefaultWarpLimit: cfg.DefaultWarpLimit,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	svc := service.New(store, cache.New(), nil, nil, service.Config{
		Cooldown: cfg.Cooldown,
	}, nil)

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.New(cfg.RateLimitPerMinute, time.Minute, nil)
	}

	server, err := api.NewServer(svc, api.Config{
		Addr:       cfg.APIAddr,
		APIKey:     cfg.APIKey,
		AllowedIPs: cfg.AllowedIPs,
		Limiter:    limiter,
	})
	if err != nil {
		return fmt.Errorf("build api server: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	return group.Wait()
}
