// Package render is the template execution adapter. It merges the
// sanitized request context with the helper registry, runs the template
// engine under a deadline and a bounded worker pool, and turns every engine
// outcome into an AppError the HTTP layer can translate.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"velocity-playground/internal/common/cache"
	"velocity-playground/internal/common/errors"
	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/helpers"
	"velocity-playground/internal/payload"
	"velocity-playground/internal/sanitize"
	"velocity-playground/internal/velocity"
)

// HelpersKey is the reserved context variable holding the helper registry.
const HelpersKey = "helpers"

// Config bounds template execution.
type Config struct {
	Timeout     time.Duration
	MaxSteps    int
	MaxOutput   int64
	MaxMemory   int64
	Concurrency int
	CacheTTL    time.Duration
}

// Result is a successful render.
type Result struct {
	Output   string
	Duration time.Duration
	CacheHit bool
}

// Adapter renders requests. It is safe for concurrent use.
type Adapter struct {
	config  Config
	helpers *helpers.Registry
	cache   cache.Cache
	pool    *semaphore.Weighted
	logger  logging.Logger
}

// NewAdapter creates an adapter. A nil cache disables template caching.
func NewAdapter(config Config, registry *helpers.Registry, templates cache.Cache, logger logging.Logger) *Adapter {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Adapter{
		config:  config,
		helpers: registry,
		cache:   templates,
		pool:    semaphore.NewWeighted(int64(config.Concurrency)),
		logger:  logger.WithFields(logging.Field{Key: "component", Value: "render"}),
	}
}

// Render parses and executes req.Template against req.Context.
func (a *Adapter) Render(ctx context.Context, req *payload.Request) (*Result, error) {
	start := time.Now()
	log := a.logger.WithContext(ctx)

	tmpl, hit, err := a.parse(ctx, req.Template)
	if err != nil {
		return nil, err
	}

	vars := a.merge(log, req.Context)
	opts := velocity.Options{
		Escape:    escapeOption(req.Options),
		MaxSteps:  a.config.MaxSteps,
		MaxOutput: a.config.MaxOutput,
		MaxMemory: a.config.MaxMemory,
	}

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	if err := a.pool.Acquire(ctx, 1); err != nil {
		log.Warn("No render slot available before the deadline")
		return nil, a.translate(err)
	}

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer a.pool.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.InternalError("template engine panicked", fmt.Errorf("%v", r))}
			}
		}()
		output, err := tmpl.Render(ctx, vars, opts)
		done <- outcome{output: output, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, a.translate(out.err)
		}
		return &Result{Output: out.output, Duration: time.Since(start), CacheHit: hit}, nil
	case <-ctx.Done():
		// the engine notices the same context and stops on its own
		return nil, a.translate(ctx.Err())
	}
}

// parse returns the parsed template for src, from the cache when present.
// Parse failures are not cached.
func (a *Adapter) parse(ctx context.Context, src string) (*velocity.Template, bool, error) {
	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])

	if a.cache != nil {
		if v, found := a.cache.Get(ctx, key); found {
			if tmpl, ok := v.(*velocity.Template); ok {
				return tmpl, true, nil
			}
		}
	}

	tmpl, err := velocity.Parse(src)
	if err != nil {
		return nil, false, a.translate(err)
	}

	if a.cache != nil {
		_ = a.cache.Set(ctx, key, tmpl, a.config.CacheTTL)
	}
	return tmpl, false, nil
}

// merge builds the variable scope: the sanitized context mapping plus the
// helper registry under HelpersKey. A caller key named like the registry is
// dropped.
func (a *Adapter) merge(log logging.Logger, raw any) map[string]any {
	sanitized, ok := sanitize.SanitizeMapping(raw)
	if !ok {
		log.Debug("Context is not a mapping, rendering without variables")
	}

	keys := sanitized.Keys()
	vars := make(map[string]any, len(keys)+1)
	for _, k := range keys {
		if k == HelpersKey {
			log.Debug("Dropping context key that collides with the helper namespace",
				logging.Field{Key: "key", Value: k})
			continue
		}
		v, _ := sanitized.Get(k)
		vars[k] = v.Native()
	}
	vars[HelpersKey] = a.helpers
	return vars
}

func escapeOption(opts *payload.Object) bool {
	if opts == nil {
		return false
	}
	v, _ := opts.Get("escape")
	b, _ := v.(bool)
	return b
}

// translate maps engine and deadline failures onto the error taxonomy.
// Messages carry template positions but never Go internals.
func (a *Adapter) translate(err error) error {
	var (
		appErr   *errors.AppError
		parseErr *velocity.ParseError
		rtErr    *velocity.RuntimeError
	)

	switch {
	case stderrors.As(err, &parseErr):
		return errors.ParseError(parseErr.Error(), err).
			WithContext("line", parseErr.Line).
			WithContext("column", parseErr.Column)

	case stderrors.Is(err, velocity.ErrStepLimit):
		return errors.TimeoutError(fmt.Sprintf("render: step budget of %d exhausted", a.config.MaxSteps), err)

	case stderrors.Is(err, velocity.ErrMemoryLimit):
		return errors.TimeoutError(fmt.Sprintf("render: memory budget of %d bytes exhausted", a.config.MaxMemory), err)

	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.TimeoutError(fmt.Sprintf("render: exceeded %v", a.config.Timeout), err)

	case stderrors.Is(err, velocity.ErrOutputLimit):
		return errors.RuntimeError(fmt.Sprintf("Rendered output exceeds %d bytes", a.config.MaxOutput), err)

	case stderrors.As(err, &appErr):
		// a helper failure keeps its own type, e.g. a validation error
		return appErr

	case stderrors.As(err, &rtErr):
		return errors.RuntimeError(rtErr.Error(), err).
			WithContext("line", rtErr.Line).
			WithContext("column", rtErr.Column)

	case stderrors.Is(err, context.Canceled):
		return errors.InternalError("render canceled", err)
	}
	return errors.InternalError("template execution failed", err)
}
