package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService backs the rate-limit block cache with memcached, so
// concurrent crawl processes share cool-down windows. Keys are built
// with BlockKey; a key that resolves means the source is still blocked,
// a miss means it may be fetched again.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService connects to the memcached instance at serverAddr.
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get resolves a block marker. Missing keys return memcache.ErrCacheMiss.
func (s *MemcacheService) Get(key string) ([]byte, error) {
	item, err := s.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set places a marker that expires on its own once the cool-down lapses.
func (s *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return s.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete lifts a block before its expiration.
func (s *MemcacheService) Delete(key string) error {
	return s.client.Delete(key)
}
