package adapter

import (
	"sync"
	"time"

	"sjlee133/academyradar/services/cache"
)

// recordingCache wraps the in-process cache and remembers every Set key.
type recordingCache struct {
	cache.CacheService
	mu      sync.Mutex
	setKeys []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{CacheService: cache.NewMemoryCache()}
}

func (r *recordingCache) Set(key string, value []byte, expiration time.Duration) error {
	r.mu.Lock()
	r.setKeys = append(r.setKeys, key)
	r.mu.Unlock()
	return r.CacheService.Set(key, value, expiration)
}

func (r *recordingCache) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.setKeys...)
}
