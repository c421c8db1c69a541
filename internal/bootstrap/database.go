package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicconnect/portal/config"
	"github.com/civicconnect/portal/internal/migrate"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout  = 5 * time.Second
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// DatabaseConfig carries connection settings for the grievance database and
// the session/draft Redis.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the grievance database pool and checks it answers.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DBConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

// redisTopology is how the portal reaches Redis.
type redisTopology string

const (
	redisDirect   redisTopology = "direct"
	redisSentinel redisTopology = "sentinel"
	redisCluster  redisTopology = "cluster"
)

// ConnectRedis builds a direct, sentinel or cluster client from cfg and
// checks it answers.
//
//nolint:ireturn // the concrete client depends on the configured topology.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	topology, opts, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := newRedisClient(topology, opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), client.Close())
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "topology", topology, "addrs", opts.Addrs, "db", opts.DB)
	}
	return client, nil
}

//nolint:ireturn // see ConnectRedis.
func newRedisClient(topology redisTopology, opts *redis.UniversalOptions) redis.UniversalClient {
	switch topology {
	case redisCluster:
		return redis.NewClusterClient(opts.Cluster())
	case redisSentinel:
		return redis.NewFailoverClient(opts.Failover())
	default:
		return redis.NewClient(opts.Simple())
	}
}

// redisOptions resolves cfg into client options. A redis:// or rediss://
// URI supplies address, credentials, database and TLS; a bare host:port
// uses the separate password and database settings.
func redisOptions(cfg config.RedisConfig) (redisTopology, *redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{Password: cfg.Password, DB: cfg.DB}

	switch {
	case cfg.UseCluster:
		opts.Addrs = trimAll(cfg.ClusterNodes)
		if len(opts.Addrs) == 0 {
			if err := applyURI(opts, cfg.URI); err != nil {
				return "", nil, fmt.Errorf("redis cluster: %w", err)
			}
		}
		if len(opts.Addrs) == 0 {
			return "", nil, errors.New("redis cluster requires at least one node")
		}
		opts.DB = 0
		return redisCluster, opts, nil

	case cfg.UseSentinel:
		opts.Addrs = trimAll(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return "", nil, errors.New("redis sentinel requires at least one sentinel node")
		}
		opts.MasterName = strings.TrimSpace(cfg.SentinelMasterName)
		if opts.MasterName == "" {
			return "", nil, errors.New("redis sentinel requires a master name")
		}
		opts.SentinelPassword = cfg.SentinelPassword
		return redisSentinel, opts, nil

	default:
		if err := applyURI(opts, cfg.URI); err != nil {
			return "", nil, err
		}
		if len(opts.Addrs) == 0 {
			return "", nil, errors.New("redis requires a URI")
		}
		return redisDirect, opts, nil
	}
}

func applyURI(opts *redis.UniversalOptions, uri string) error {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return nil
	case strings.HasPrefix(uri, "redis://"), strings.HasPrefix(uri, "rediss://"):
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		opts.Addrs = []string{parsed.Addr}
		opts.Username = parsed.Username
		if parsed.Password != "" {
			opts.Password = parsed.Password
		}
		opts.DB = parsed.DB
		opts.TLSConfig = parsed.TLSConfig
	default:
		opts.Addrs = []string{uri}
	}
	return nil
}

func trimAll(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RunMigrations applies the embedded grievance schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
