package test

import (
	"context"

	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/kvstore"
)

// storeContract checks the behavior every backend shares.
func (s *IntegrationTestSuite) storeContract(store kvstore.Store) {
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "contract-missing")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(store.Set(ctx, "contract-key", `{"flexao":[]}`))
	value, ok, err := store.Get(ctx, "contract-key")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(`{"flexao":[]}`, value)

	// overwrite
	s.Require().NoError(store.Set(ctx, "contract-key", `{"barra":[]}`))
	value, _, err = store.Get(ctx, "contract-key")
	s.Require().NoError(err)
	s.Equal(`{"barra":[]}`, value)

	s.Require().NoError(store.Remove(ctx, "contract-key"))
	_, ok, err = store.Get(ctx, "contract-key")
	s.Require().NoError(err)
	s.False(ok)

	// removing an absent key is fine
	s.NoError(store.Remove(ctx, "contract-key"))
}

func (s *IntegrationTestSuite) TestPostgresStore() {
	ctx := context.Background()
	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: "localhost",
		DBPort: s.postgresPort,
		DBName: testDBName,
	})
	s.Require().NoError(err)
	defer pool.Close()

	store := kvstore.NewPostgresStore(pool)
	s.Require().NoError(store.Migrate(ctx))
	// migrating twice is a no-op
	s.Require().NoError(store.Migrate(ctx))

	s.storeContract(store)
	s.storeContract(kvstore.NewCachedStore(store, 1024*1024))
}

func (s *IntegrationTestSuite) TestRedisStore() {
	ctx := context.Background()
	rdb := kvstore.NewRedisClient(ctx, kvstore.NewRedisClientParams{
		Host: "localhost",
		Port: s.redisPort,
	})
	defer rdb.Close()

	store := kvstore.NewRedisStore(rdb, "contract::")
	s.storeContract(store)

	s.Require().NoError(store.Set(ctx, "prefixed", "1"))
	val, err := rdb.Get(ctx, "contract::prefixed").Result()
	s.Require().NoError(err)
	s.Equal("1", val)
}
