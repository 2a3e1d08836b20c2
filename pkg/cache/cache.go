package cache

import (
	"context"
	"net/url"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	cache "github.com/go-pkgz/expirable-cache/v3"
)

// Cache memoizes per-URL fetch results. Failed fetches are not cached.
type Cache[T any] struct {
	cache cache.Cache[string, T]
}

func New[T any](ttl time.Duration, maxKeys int) *Cache[T] {
	return &Cache[T]{
		cache: cache.NewCache[string, T]().WithTTL(ttl).WithMaxKeys(maxKeys),
	}
}

func (c *Cache[T]) Cached(
	ctx context.Context, url *url.URL,
	fetch func(ctx context.Context, url *url.URL) (T, error),
) (T, error) {
	key := url.String()

	if value, ok := c.cache.Get(key); ok {
		logging.L(ctx).Debugf("Got %s from cache.", url)
		return value, nil
	}

	value, err := fetch(ctx, url)
	if err == nil {
		logging.L(ctx).Debugf("Add %s to cache.", url)
		c.cache.Add(key, value)
	}

	return value, err
}

func (c *Cache[T]) Len() int {
	return c.cache.Len()
}
