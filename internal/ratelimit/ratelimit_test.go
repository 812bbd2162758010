package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixed clock helper so window expiry can be tested without sleeping
func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := New()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckWindowLifecycle(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))

	// first N calls allowed with decreasing remaining
	for i := 0; i < 3; i++ {
		res := l.Check("k", 3, time.Minute)
		require.True(t, res.Allowed)
		require.Equal(t, 2-i, res.Remaining)
	}

	// (N+1)-th call inside the window rejected
	res := l.Check("k", 3, time.Minute)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, time.Unix(1060, 0), res.ResetAt)

	// first call after the window gets a fresh budget
	*now = now.Add(61 * time.Second)
	res = l.Check("k", 3, time.Minute)
	require.True(t, res.Allowed)
	require.Equal(t, 2, res.Remaining)
}

func TestCheckKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	for i := 0; i < 5; i++ {
		require.True(t, l.Check("a", 5, time.Minute).Allowed)
	}
	require.False(t, l.Check("a", 5, time.Minute).Allowed)
	require.True(t, l.Check("b", 5, time.Minute).Allowed)
}

func TestAllowNamespacesActions(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	q := Quota{Max: 1, Window: time.Minute}

	require.NoError(t, l.Allow(q, "create_poll", "10.0.0.1"))
	require.Error(t, l.Allow(q, "create_poll", "10.0.0.1"))
	// same id under a different action has its own window
	require.NoError(t, l.Allow(q, "vote", "10.0.0.1"))
}

func TestAllowErrorCarriesRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	q := Quota{Max: 1, Window: 30 * time.Second}

	require.NoError(t, l.Allow(q, "login", "a@example.com"))
	err := l.Allow(q, "login", "a@example.com")
	require.Error(t, err)

	var rl *Error
	require.True(t, errors.As(err, &rl))
	require.Equal(t, 30*time.Second, rl.RetryAfter)
}

func TestConcurrentChecksDoNotLoseUpdates(t *testing.T) {
	l := New()
	const workers = 50
	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("burst", 10, time.Minute).Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	require.Equal(t, 10, n)
}
