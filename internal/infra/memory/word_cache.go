package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vocab-test-service/internal/domain"
)

// WordSource is the backing reader the cache fills from (pgx loader or Store).
type WordSource interface {
	ListWords(ctx context.Context, listID string) ([]domain.Word, error)
	FindWords(ctx context.Context, ids []string) ([]domain.Word, error)
}

// WordCache caches full-list word reads with a TTL to avoid repeated DB hits.
// Words are immutable after creation, so stale entries can only ever be
// missing a list created moments ago, never wrong.
type WordCache struct {
	source WordSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedWords
}

type cachedWords struct {
	words     []domain.Word
	expiresAt time.Time
}

func NewWordCache(source WordSource, ttl time.Duration) *WordCache {
	return &WordCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedWords),
	}
}

func (c *WordCache) ListWords(ctx context.Context, listID string) ([]domain.Word, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[listID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return cloneWords(entry.words), nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(listID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[listID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.words, nil
		}
		c.mu.RUnlock()

		words, err := c.source.ListWords(ctx, listID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[listID] = cachedWords{
			words:     words,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return words, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneWords(result.([]domain.Word)), nil
}

// cloneWords keeps the cached slice private; callers are free to reorder
// what they get back.
func cloneWords(words []domain.Word) []domain.Word {
	out := make([]domain.Word, len(words))
	copy(out, words)
	return out
}

// FindWords bypasses the cache; id lookups cross list boundaries.
func (c *WordCache) FindWords(ctx context.Context, ids []string) ([]domain.Word, error) {
	return c.source.FindWords(ctx, ids)
}

func (c *WordCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
