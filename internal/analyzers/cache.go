package analyzers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// Cached memoizes an analyzer by source content. A revision that reproduces an
// earlier artifact byte for byte skips the external tool. Unavailable results
// are never cached.
type Cached struct {
	inner schemas.Analyzer
	cache *lru.Cache[string, []schemas.Finding]
}

var _ schemas.Analyzer = (*Cached)(nil)

// NewCached wraps inner with an LRU of the given size. A size of zero or less
// returns inner unchanged.
func NewCached(inner schemas.Analyzer, size int) (schemas.Analyzer, error) {
	if size <= 0 {
		return inner, nil
	}
	cache, err := lru.New[string, []schemas.Finding](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Analyze(ctx context.Context, source string) ([]schemas.Finding, bool) {
	sum := sha256.Sum256([]byte(source))
	key := hex.EncodeToString(sum[:])

	if findings, ok := c.cache.Get(key); ok {
		return cloneFindings(findings), true
	}

	findings, ok := c.inner.Analyze(ctx, source)
	if !ok {
		return nil, false
	}
	c.cache.Add(key, cloneFindings(findings))
	return findings, true
}

func cloneFindings(in []schemas.Finding) []schemas.Finding {
	if in == nil {
		return nil
	}
	out := make([]schemas.Finding, len(in))
	copy(out, in)
	return out
}
