package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_PassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker()

	result, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", cb.State())

	m := cb.Metrics()
	assert.Equal(t, uint64(1), m.TotalRequests)
	assert.Equal(t, uint64(1), m.TotalSuccesses)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		MaxFailures:          3,
		Timeout:              time.Minute,
		HalfOpenMaxSuccesses: 1,
	})

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), func() (interface{}, error) {
			return nil, errBoom
		})
		require.Error(t, err)
	}
	assert.Equal(t, "open", cb.State())

	// Requests while open are rejected without running fn.
	ran := false
	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		ran = true
		return "ok", nil
	})
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, ran)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		MaxFailures:          1,
		Timeout:              20 * time.Millisecond,
		HalfOpenMaxSuccesses: 1,
	})

	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return nil, errBoom
	})
	require.Error(t, err)
	require.Equal(t, "open", cb.State())

	time.Sleep(30 * time.Millisecond)

	result, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) {
		return "never", nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCircuitBreaker_MetricsCountFailures(t *testing.T) {
	cb := NewCircuitBreaker()

	_, _ = cb.Execute(context.Background(), func() (interface{}, error) { return nil, errBoom })
	_, _ = cb.Execute(context.Background(), func() (interface{}, error) { return "ok", nil })

	m := cb.Metrics()
	assert.Equal(t, uint64(2), m.TotalRequests)
	assert.Equal(t, uint64(1), m.TotalFailures)
	assert.Equal(t, uint64(1), m.TotalSuccesses)
}
