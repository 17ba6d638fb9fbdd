package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robfig/cron/v3"

	"velocity-playground/internal/common/logging"
)

// Option customizes a limiter.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger logging.Logger
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the limiter's logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetGlobalLogger()
	}
	return o
}

type window struct {
	start time.Time
	count int64
}

type stripe struct {
	mu      sync.Mutex
	windows map[string]*window
}

// LocalLimiter counts fixed windows in process memory.
type LocalLimiter struct {
	config  Config
	stripes []stripe
	now     func() time.Time
	logger  logging.Logger

	cron      *cron.Cron
	lastSweep atomic.Int64
	swept     atomic.Int64
}

// NewLocalLimiter creates a local limiter and starts its sweep schedule.
// Close stops the schedule.
func NewLocalLimiter(config Config, opts ...Option) (*LocalLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	l := &LocalLimiter{
		config:  config,
		stripes: make([]stripe, config.Stripes),
		now:     o.now,
		logger:  o.logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"}),
	}
	for i := range l.stripes {
		l.stripes[i].windows = make(map[string]*window)
	}
	l.lastSweep.Store(l.now().UnixNano())

	if config.Enabled {
		l.cron = cron.New()
		if _, err := l.cron.AddFunc(config.SweepSchedule, l.sweepJob); err != nil {
			return nil, err
		}
		l.cron.Start()
	}

	return l, nil
}

// Admit counts a request for key in its current window.
func (l *LocalLimiter) Admit(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	if !l.config.Enabled {
		return unlimited(l.config.Limit, l.config.Window, now), nil
	}

	s := l.stripeFor(key)
	s.mu.Lock()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.start.Add(l.config.Window)) {
		w = &window{start: now}
		s.windows[key] = w
	}
	w.count++
	count, resetAt := w.count, w.start.Add(l.config.Window)
	s.mu.Unlock()

	return decide(l.config.Limit, count, resetAt, now), nil
}

func (l *LocalLimiter) stripeFor(key string) *stripe {
	return &l.stripes[xxhash.Sum64String(key)%uint64(len(l.stripes))]
}

// Sweep drops every window that has closed and returns how many it removed.
func (l *LocalLimiter) Sweep() int {
	now := l.now()
	removed := 0
	for i := range l.stripes {
		s := &l.stripes[i]
		s.mu.Lock()
		for key, w := range s.windows {
			if !now.Before(w.start.Add(l.config.Window)) {
				delete(s.windows, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	l.lastSweep.Store(now.UnixNano())
	l.swept.Add(int64(removed))
	return removed
}

func (l *LocalLimiter) sweepJob() {
	if n := l.Sweep(); n > 0 {
		l.logger.Debug("Swept expired rate limit windows", logging.Field{Key: "removed", Value: n})
	}
}

// ActiveKeys returns the number of keys holding a window.
func (l *LocalLimiter) ActiveKeys() int {
	n := 0
	for i := range l.stripes {
		s := &l.stripes[i]
		s.mu.Lock()
		n += len(s.windows)
		s.mu.Unlock()
	}
	return n
}

// Stats returns rate limiter statistics
func (l *LocalLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":        string(BackendLocal),
		"enabled":     l.config.Enabled,
		"limit":       l.config.Limit,
		"window":      l.config.Window.String(),
		"active_keys": l.ActiveKeys(),
		"swept_keys":  l.swept.Load(),
		"last_sweep":  time.Unix(0, l.lastSweep.Load()).UTC().Format(time.RFC3339),
	}
}

// Health checks if the rate limiter is working properly
func (l *LocalLimiter) Health(ctx context.Context) error {
	// Local rate limiter is always healthy
	return nil
}

// Close stops the sweep schedule and waits for a running sweep to finish.
func (l *LocalLimiter) Close() error {
	if l.cron != nil {
		<-l.cron.Stop().Done()
	}
	return nil
}

var _ Limiter = (*LocalLimiter)(nil)
