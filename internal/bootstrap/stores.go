package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicconnect/portal/config"
	"github.com/civicconnect/portal/internal/adapters/memory"
	redisadapter "github.com/civicconnect/portal/internal/adapters/redis"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/civicconnect/portal/internal/service"
	"github.com/redis/go-redis/v9"
)

// memoryStoreCapacity bounds each in-process store.
const memoryStoreCapacity = 10000

// StoreConfig selects the session and draft backend.
type StoreConfig struct {
	Kind        config.SessionStoreKind
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Stores is the pair of short-lived stores the portal keeps outside Postgres.
type Stores struct {
	Sessions ports.SessionStore
	Drafts   ports.DraftStore

	// Sweep lists stores that only expire records on access. Redis expires
	// keys itself, so it is empty there.
	Sweep []service.ReaperTarget
}

// BuildStores returns Redis-backed stores, or process-local ones when the
// memory backend is selected.
func BuildStores(cfg StoreConfig) (Stores, error) {
	switch cfg.Kind {
	case config.SessionStoreMemory:
		if cfg.Logger != nil {
			cfg.Logger.Warn("sessions and drafts are kept in memory; they are lost on restart and not shared between replicas")
		}
		sessions := memory.NewSessionStore(memory.Options{Capacity: memoryStoreCapacity})
		drafts := memory.NewDraftStore(memory.Options{Capacity: memoryStoreCapacity})
		return Stores{
			Sessions: sessions,
			Drafts:   drafts,
			Sweep: []service.ReaperTarget{
				{Name: "sessions", Store: sessions},
				{Name: "drafts", Store: drafts},
			},
		}, nil
	case config.SessionStoreRedis, "":
		if cfg.RedisClient == nil {
			return Stores{}, errors.New("redis session store selected but no redis client configured")
		}
		return Stores{
			Sessions: redisadapter.NewSessionStore(cfg.RedisClient),
			Drafts:   redisadapter.NewDraftStore(cfg.RedisClient),
		}, nil
	default:
		return Stores{}, fmt.Errorf("unknown session store %q", cfg.Kind)
	}
}
