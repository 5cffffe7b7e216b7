package probe

import (
	"context"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/bavix/dobson/internal/metrics"
)

const scanKey = "scan"

// CachedEnumerator reuses a recent scan for ttl and coalesces concurrent
// scans into one router round trip. Errors are never cached.
type CachedEnumerator struct {
	Next Enumerator

	lru *lru.LRU[string, []string]
	sf  singleflight.Group
}

func NewCachedEnumerator(next Enumerator, ttl time.Duration) *CachedEnumerator {
	return &CachedEnumerator{
		Next: next,
		lru:  lru.NewLRU[string, []string](1, nil, ttl),
	}
}

func (c *CachedEnumerator) Enumerate(ctx context.Context) ([]string, error) {
	if macs, ok := c.lru.Get(scanKey); ok {
		metrics.RecordProbeCache(true)

		return slices.Clone(macs), nil
	}

	metrics.RecordProbeCache(false)

	v, err, _ := c.sf.Do(scanKey, func() (any, error) {
		macs, err := c.Next.Enumerate(ctx)
		if err != nil {
			return nil, err
		}

		c.lru.Add(scanKey, macs)

		return macs, nil
	})
	if err != nil {
		return nil, err
	}

	macs, _ := v.([]string)

	return slices.Clone(macs), nil
}

// Invalidate drops the cached scan.
func (c *CachedEnumerator) Invalidate() {
	c.lru.Remove(scanKey)
}
