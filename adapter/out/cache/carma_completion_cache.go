// Package cache decorates a completion service with a shared response cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"carma_server/core/port/out"
	kv "carma_server/pkg/cache"
	"carma_server/pkg/logger"
)

const (
	KeyPrefix = "carma:completion:"

	// MaxCachedTemperature bounds which requests are cached. Sampled drafts are
	// expected to differ between calls.
	MaxCachedTemperature = 0.3
)

type CompletionCache struct {
	next  out.TextCompletionService
	store kv.JSONCache
	ttl   time.Duration
	log   *logger.Logger
}

var _ out.TextCompletionService = (*CompletionCache)(nil)

func NewCompletionCache(next out.TextCompletionService, store kv.JSONCache, ttl time.Duration) *CompletionCache {
	return &CompletionCache{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   logger.WithField("component", "completion_cache"),
	}
}

func (c *CompletionCache) Complete(ctx context.Context, req out.CompletionRequest) (string, error) {
	if req.Temperature > MaxCachedTemperature {
		return c.next.Complete(ctx, req)
	}

	key := Key(req)
	var cached string
	found, err := c.store.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log.WithError(err).Warn("cache read failed")
	} else if found {
		return cached, nil
	}

	text, err := c.next.Complete(ctx, req)
	if err != nil || text == "" {
		return text, err
	}
	if err := c.store.SetJSON(ctx, key, text, c.ttl); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
	return text, nil
}

// Key hashes every field of the request.
func Key(req out.CompletionRequest) string {
	h := sha256.New()
	h.Write([]byte(req.SystemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(req.UserPrompt))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(req.Temperature, 'f', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.MaxTokens)))
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}
