// Package ratelimit provides per-client fixed-window admission control with
// an in-memory backend and a shared Redis backend.
//
// # Basic Usage
//
//	config, err := ratelimit.NewConfigBuilder().
//		WithLimit(60).
//		WithWindow(time.Minute).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	limiter, err := ratelimit.New(config, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer limiter.Close()
//
//	decision, err := limiter.Admit(ctx, "ip:203.0.113.7")
//	if err == nil && !decision.Allowed {
//		// reject, retry after decision.RetryAfter
//	}
//
// # Backends
//
// The local backend keeps one counter per key in lock-striped maps, so checks
// for the same key are serialized while checks for different keys rarely
// contend. Expired windows are swept on a cron schedule.
//
// The Redis backend counts hits with a single Lua script, which makes every
// check atomic across processes. Calls go through a circuit breaker; while
// Redis is failing or the breaker is open, requests are admitted against
// local counters instead.
//
// Every check counts, admitted or not: a client that keeps hammering a closed
// window does not earn extra quota when it reopens.
package ratelimit
