package translate

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/metrics"
)

// Cached memoises successful translations. Catalogs repeat the same short
// descriptions across many files, so a run only pays for each once.
type Cached struct {
	next  Translator
	cache *lru.Cache[string, string]
}

// NewCached wraps next with an LRU of the given size.
func NewCached(next Translator, size int) (*Cached, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

// Translate implements Translator.
func (c *Cached) Translate(ctx context.Context, text string, src, dst api.Language) (string, error) {
	key := string(src) + "|" + string(dst) + "|" + text
	if v, ok := c.cache.Get(key); ok {
		metrics.CacheOperationsTotal.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CacheOperationsTotal.WithLabelValues("miss").Inc()
	out, err := c.next.Translate(ctx, text, src, dst)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, out)
	return out, nil
}

// Forget drops the cached translation of text, used when a result is
// rejected and must be requested again.
func (c *Cached) Forget(text string, src, dst api.Language) {
	c.cache.Remove(string(src) + "|" + string(dst) + "|" + text)
}

// Len is the number of cached translations.
func (c *Cached) Len() int { return c.cache.Len() }
