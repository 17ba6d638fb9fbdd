// Package cache wraps github.com/patrickmn/go-cache as a process-local TTL
// cache. The render adapter keeps parsed templates in it, keyed by the
// SHA-256 of their source.
//
// Usage:
//
//	c := cache.NewLocalCache(10*time.Minute, 20*time.Minute)
//	c.Set(ctx, key, tmpl, cache.DefaultExpiration)
//	v, found := c.Get(ctx, key)
package cache
