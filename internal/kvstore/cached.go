package kvstore

import (
	"context"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

var _ Store = (*CachedStore)(nil)

const (
	DefaultCacheSize = 10 * 1024 * 1024 // 10 MB
	cacheExpireSec   = 60 * 60          // 1 hour
)

// CachedStore is a write-through freecache layer in front of another Store.
// Absent keys are never cached.
type CachedStore struct {
	next  Store
	cache *freecache.Cache
}

func NewCachedStore(next Store, cacheSize int) *CachedStore {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &CachedStore{
		next:  next,
		cache: freecache.NewCache(cacheSize),
	}
}

func (s *CachedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if valBytes, err := s.cache.Get([]byte(key)); err == nil {
		log.Tracef("cached store: cache hit [%s]", key)
		return string(valBytes), true, nil
	}

	val, ok, err := s.next.Get(ctx, key)
	if err != nil || !ok {
		return val, ok, err
	}
	s.cacheValue(key, val)
	return val, true, nil
}

func (s *CachedStore) Set(ctx context.Context, key, value string) error {
	// drop first, a failed write must not leave a stale value behind
	s.cache.Del([]byte(key))
	if err := s.next.Set(ctx, key, value); err != nil {
		return err
	}
	s.cacheValue(key, value)
	return nil
}

func (s *CachedStore) Remove(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return s.next.Remove(ctx, key)
}

func (s *CachedStore) cacheValue(key, value string) {
	if err := s.cache.Set([]byte(key), []byte(value), cacheExpireSec); err != nil {
		// most likely freecache.ErrLargeEntry, value is just not cached then
		log.Debugf("cached store: failed to cache [%s]: %s", key, err)
	}
}
