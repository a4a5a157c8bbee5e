package cache

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/textutil"
)

// RefinementCache stores refined candidates keyed by (normalized text, mode)
type RefinementCache struct {
	backend Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewRefinementCache wraps backend with candidate encoding
func NewRefinementCache(backend Cache, ttl time.Duration, logger *slog.Logger) *RefinementCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefinementCache{backend: backend, ttl: ttl, logger: logger}
}

// RefinementKey is the cache key for text refined under mode
func RefinementKey(text string, mode model.Mode) string {
	return Key(textutil.Normalize(text), string(mode))
}

// Get returns the cached candidate for key. Entries that fail to decode are
// dropped and reported as misses.
func (c *RefinementCache) Get(key string) (model.Candidate, bool) {
	data, found := c.backend.Get(key)
	if !found {
		return model.Candidate{}, false
	}

	var cand model.Candidate
	if err := json.Unmarshal(data, &cand); err != nil || strings.TrimSpace(cand.Text) == "" {
		c.logger.Debug("Discarding unreadable cache entry", "key", key, "error", err)
		_ = c.backend.Delete(key)
		return model.Candidate{}, false
	}
	return cand, true
}

// Put stores cand under key
func (c *RefinementCache) Put(key string, cand model.Candidate) error {
	data, err := json.Marshal(cand)
	if err != nil {
		return err
	}
	return c.backend.Set(key, data, c.ttl)
}
