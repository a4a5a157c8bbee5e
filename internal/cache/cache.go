package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/parafrasa/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key hashes its parts into a stable cache key.
// Parts are separated so ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return "parafrasa:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg: memory only, or memory over disk when persisted
func New(cfg model.CacheConfig) Cache {
	memory := NewMemoryCache(cfg.TTL, 10*time.Minute)
	if !cfg.Persist {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.TTL))
}
