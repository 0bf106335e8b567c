package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbyte/capacity-engine/internal/resilience"
)

var errBoom = errors.New("boom")

func newBreaker(maxFailures int, timeout time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: maxFailures,
		Timeout:     timeout,
		HalfOpenMax: 2,
	})
}

func failN(cb *resilience.CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := newBreaker(3, time.Minute)

	failN(cb, 2)
	assert.Equal(t, resilience.StateClosed, cb.State())

	failN(cb, 1)
	assert.Equal(t, resilience.StateOpen, cb.State())

	// Calls are rejected without invoking the function.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newBreaker(3, time.Minute)

	failN(cb, 2)
	require.NoError(t, cb.Execute(func() error { return nil }))

	// The counter restarts: two more failures do not trip it.
	failN(cb, 2)
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newBreaker(1, 10*time.Millisecond)

	failN(cb, 1)
	require.Equal(t, resilience.StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First probe after the timeout goes through half-open.
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, resilience.StateHalfOpen, cb.State())

	// Enough consecutive successes close it again.
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newBreaker(1, 10*time.Millisecond)

	failN(cb, 1)
	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, resilience.StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newBreaker(1, time.Minute)

	failN(cb, 1)
	require.Equal(t, resilience.StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, resilience.StateClosed, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))

	state, failures, _ := cb.Stats()
	assert.Equal(t, resilience.StateClosed, state)
	assert.Zero(t, failures)
}
