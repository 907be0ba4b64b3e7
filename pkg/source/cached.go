package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhaozixinnn/drawisthintv/pkg/cache"
	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// CachedFetcher serves feeds from a disk cache and refreshes them from
// Upstream once they go stale. When the refresh fails the stale feed is
// returned instead of the error.
type CachedFetcher struct {
	Upstream Fetcher
	Store    *cache.Store
	TTL      time.Duration // zero uses the store default
	Logger   *slog.Logger
}

func cacheKey(unit string) string {
	return "comments:" + unit
}

// FetchEvents implements Fetcher.
func (c *CachedFetcher) FetchEvents(ctx context.Context, unit string) ([]danmaku.Event, error) {
	log := c.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	key := cacheKey(unit)

	if events, ok := cache.GetTyped[[]danmaku.Event](c.Store, key); ok {
		log.Debug("feed cache hit", "unit", unit, "count", len(events))
		return events, nil
	}

	events, err := c.Upstream.FetchEvents(ctx, unit)
	if err != nil {
		if stale, _, ok := cache.LookupTyped[[]danmaku.Event](c.Store, key); ok {
			log.Warn("serving stale feed", "unit", unit, "error", err)
			return stale, nil
		}
		return nil, err
	}

	if c.TTL > 0 {
		err = cache.PutTypedWithTTL(c.Store, key, events, c.TTL)
	} else {
		err = cache.PutTyped(c.Store, key, events)
	}
	if err != nil {
		log.Warn("feed cache write failed", "unit", unit, "error", err)
	}
	return events, nil
}

// Invalidate drops the cached feed for unit so the next fetch goes
// upstream.
func (c *CachedFetcher) Invalidate(unit string) {
	c.Store.Delete(cacheKey(unit))
}
