package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string // empty picks postgres, then redis, then memory
	RedisURL      string
	RedisPassword string
	DatabaseURL   string

	// Redis may come up after us (secrets sync), so connecting is retried.
	RedisAttempts   int
	RedisRetryDelay time.Duration
}

// ResolveBackend returns the backend Open would use for o.
func (o Options) ResolveBackend() string {
	if o.Backend != "" {
		return o.Backend
	}
	switch {
	case o.DatabaseURL != "":
		return BackendPostgres
	case o.RedisURL != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

// Open connects to the configured backend.
func Open(ctx context.Context, o Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := o.ResolveBackend()
	switch backend {
	case BackendMemory:
		logger.Warn("settings are kept in memory and will not survive a restart")
		return NewMemory(), nil

	case BackendRedis:
		attempts := o.RedisAttempts
		if attempts <= 0 {
			attempts = 6
		}
		delay := o.RedisRetryDelay
		if delay <= 0 {
			delay = 5 * time.Second
		}
		var lastErr error
		for i := 0; i < attempts; i++ {
			r, err := NewRedis(o.RedisURL, o.RedisPassword)
			if err == nil {
				logger.Info("redis connected for settings")
				return r, nil
			}
			lastErr = err
			logger.Warn("redis not ready, retrying...", "attempt", i+1, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		return nil, fmt.Errorf("connect redis after %d attempts: %w", attempts, lastErr)

	case BackendPostgres:
		p, err := NewPostgres(ctx, o.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := p.Migrate(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database connected and migrated")
		return p, nil

	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}
