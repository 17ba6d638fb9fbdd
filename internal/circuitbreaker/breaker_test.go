package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velocity-playground/internal/common/errors"
	"velocity-playground/internal/common/logging"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, RedisConfig.Validate())

	bad := []Config{
		{MaxFailures: 0, Timeout: time.Second, MaxConcurrentRequests: 1},
		{MaxFailures: 1, Timeout: 0, MaxConcurrentRequests: 1},
		{MaxFailures: 1, Timeout: time.Second, MaxConcurrentRequests: 0},
		{MaxFailures: 1, Timeout: time.Second, MaxConcurrentRequests: 1, Interval: -time.Second},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "config %d", i)
	}
}

func TestGoBreakerAdapter(t *testing.T) {
	logger := logging.GetGlobalLogger() // Use global logger for tests

	t.Run("basic operation", func(t *testing.T) {
		cb := NewGoBreaker("test-basic", Config{
			MaxFailures:           2,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		// Should start closed
		assert.Equal(t, StateClosed, cb.State())

		err := cb.Execute(context.Background(), func() error {
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := NewGoBreaker("test-invalid", Config{}, nil)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("circuit opens after failures", func(t *testing.T) {
		cb := NewGoBreaker("test-failures", Config{
			MaxFailures:           3,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 3; i++ {
			err := cb.Execute(context.Background(), func() error {
				return fmt.Errorf("failure %d", i)
			})
			assert.Error(t, err)
		}

		assert.Equal(t, StateOpen, cb.State())
		assert.True(t, cb.IsOpen())

		// Next call should fail immediately
		err := cb.Execute(context.Background(), func() error {
			t.Fatal("This should not be called")
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open")
		assert.True(t, errors.IsType(err, errors.ErrTypeInternal))
	})

	t.Run("circuit recovers through half-open", func(t *testing.T) {
		cb := NewGoBreaker("test-half-open", Config{
			MaxFailures:           2,
			Timeout:               50 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 2; i++ {
			cb.Execute(context.Background(), func() error {
				return fmt.Errorf("failure")
			})
		}
		assert.Equal(t, StateOpen, cb.State())

		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		err := cb.Execute(context.Background(), func() error {
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("caller errors don't trip breaker", func(t *testing.T) {
		cb := NewGoBreaker("test-caller-errors", Config{
			MaxFailures:           2,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 5; i++ {
			cb.Execute(context.Background(), func() error {
				return errors.ValidationError("invalid input")
			})
			cb.Execute(context.Background(), func() error {
				return fmt.Errorf("request gone: %w", context.Canceled)
			})
		}
		assert.Equal(t, StateClosed, cb.State())

		for i := 0; i < 2; i++ {
			cb.Execute(context.Background(), func() error {
				return errors.InternalError("server error", nil)
			})
		}
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("canceled context skips the call", func(t *testing.T) {
		cb := NewGoBreaker("test-canceled", DefaultConfig(), logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := cb.Execute(ctx, func() error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("execute with fallback", func(t *testing.T) {
		cb := NewGoBreaker("test-fallback", Config{
			MaxFailures:           1,
			Timeout:               time.Second,
			MaxConcurrentRequests: 1,
		}, logger)

		// Primary failure goes to the fallback with the primary's error
		result, err := cb.ExecuteWithFallback(
			context.Background(),
			func() (interface{}, error) {
				return nil, fmt.Errorf("primary failed")
			},
			func(err error) (interface{}, error) {
				assert.EqualError(t, err, "primary failed")
				return "fallback value", nil
			},
		)
		assert.NoError(t, err)
		assert.Equal(t, "fallback value", result)
		assert.True(t, cb.IsOpen())

		// Open breaker skips the primary entirely
		result, err = cb.ExecuteWithFallback(
			context.Background(),
			func() (interface{}, error) {
				t.Fatal("primary should not run while open")
				return nil, nil
			},
			func(err error) (interface{}, error) {
				return "fallback value", nil
			},
		)
		assert.NoError(t, err)
		assert.Equal(t, "fallback value", result)
	})

	t.Run("stats tracking", func(t *testing.T) {
		cb := NewGoBreaker("test-stats", Config{
			MaxFailures:           10,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 3; i++ {
			cb.Execute(context.Background(), func() error {
				return nil
			})
		}
		for i := 0; i < 2; i++ {
			cb.Execute(context.Background(), func() error {
				return fmt.Errorf("failure")
			})
		}

		stats := cb.Stats()
		assert.Equal(t, "test-stats", stats.Name)
		assert.Equal(t, "closed", stats.State)
		assert.Equal(t, 3, stats.Successes)
		assert.Equal(t, 2, stats.Failures)
	})
}
