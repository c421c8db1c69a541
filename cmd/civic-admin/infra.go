package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicconnect/portal/config"
	redisadapter "github.com/civicconnect/portal/internal/adapters/redis"
	"github.com/civicconnect/portal/internal/bootstrap"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
)

var errRedisNotConfigured = errors.New("redis not configured")

// sessionAdmin is the slice of a session store the CLI works with.
type sessionAdmin interface {
	Scan(ctx context.Context, limit int) ([]string, error)
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

func connectDB(cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// openRedisSessions connects to the session Redis. In-memory sessions live
// inside the portal process and cannot be reached from here.
func openRedisSessions(
	_ context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (sessionAdmin, func() error, error) {
	if cfg.Auth.SessionStore != config.SessionStoreRedis {
		return nil, nil, fmt.Errorf("session store is %q; only redis sessions can be managed remotely", cfg.Auth.SessionStore)
	}
	if !hasRedisConfig(&cfg.Redis) {
		return nil, nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return redisadapter.NewSessionStore(client), client.Close, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}
