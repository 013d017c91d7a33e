package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type OpenParams struct {
	Backend string
	DataDir string
	// RedisClient is required by the redis backend
	RedisClient    *redis.Client
	RedisKeyPrefix string
	Postgres       db.NewDBPoolParams
	// CacheSize in bytes, 0 disables the cache layer
	CacheSize      int
	MetricsManager *metrics.Manager
}

// Backend is an opened Store together with the resources owned by it.
type Backend struct {
	Store  Store
	DBPool *pgxpool.Pool
}

func (b *Backend) Close() {
	if b.DBPool != nil {
		log.Debugln("closing db pool ...")
		b.DBPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}
}

// Open builds the configured backend and wraps it with the cache and
// metrics decorators.
func Open(ctx context.Context, params OpenParams) (*Backend, error) {
	backend := &Backend{}

	switch params.Backend {
	case BackendMemory:
		backend.Store = NewMemoryStore()
	case BackendFile:
		fileStore, err := NewFileStore(params.DataDir)
		if err != nil {
			return nil, err
		}
		backend.Store = fileStore
	case BackendRedis:
		if params.RedisClient == nil {
			return nil, errors.New("redis store: redis client not set")
		}
		backend.Store = NewRedisStore(params.RedisClient, params.RedisKeyPrefix)
	case BackendPostgres:
		pool, err := db.NewDBPool(ctx, params.Postgres)
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		pgStore := NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		backend.Store = pgStore
		backend.DBPool = pool
	default:
		return nil, fmt.Errorf("unknown store backend: %s", params.Backend)
	}

	if params.CacheSize > 0 {
		backend.Store = NewCachedStore(backend.Store, params.CacheSize)
	}
	if params.MetricsManager != nil {
		backend.Store = NewInstrumentedStore(backend.Store, params.MetricsManager)
	}

	log.Infof("store backend [%s] opened (cache size: %d)", params.Backend, params.CacheSize)
	return backend, nil
}
