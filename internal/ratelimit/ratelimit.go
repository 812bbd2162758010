// Package ratelimit implements the per-action fixed-window request limiter.
//
// One Limiter instance is constructed at startup and injected into every
// guarded operation; tests construct isolated instances. Entries expire
// lazily: a key past its window is reinitialized on next access, never swept
// in the background.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Quota is a per-action request budget.
type Quota struct {
	Max    int
	Window time.Duration
}

// Budgets for the guarded actions. Keys are namespaced by the action name so
// e.g. poll creation and voting from the same address count independently.
var (
	CreatePoll = Quota{Max: 5, Window: time.Minute}
	Vote       = Quota{Max: 10, Window: time.Minute}
	Login      = Quota{Max: 5, Window: 5 * time.Minute}
	Register   = Quota{Max: 3, Window: 5 * time.Minute}
)

// Result describes a single limiter decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Error is returned by guarded operations when a caller exhausted its budget.
type Error struct {
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	secs := int(e.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("rate limit exceeded, retry in %d seconds", secs)
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a process-wide fixed-window counter keyed by caller-supplied
// strings. All methods are safe for concurrent use; the check-and-increment
// runs under one lock so concurrent bursts cannot slip past the limit.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]entry

	// now is replaceable in tests.
	now func() time.Time
}

func New() *Limiter {
	return &Limiter{entries: make(map[string]entry), now: time.Now}
}

// Check applies the fixed-window algorithm for key: a fresh or expired window
// is initialized to count 1; a full window rejects; otherwise the count is
// incremented in place.
func (l *Limiter) Check(key string, max int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		reset := now.Add(window)
		l.entries[key] = entry{count: 1, resetAt: reset}
		return Result{Allowed: true, Remaining: max - 1, ResetAt: reset}
	}
	if e.count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}
	e.count++
	l.entries[key] = e
	return Result{Allowed: true, Remaining: max - e.count, ResetAt: e.resetAt}
}

// Allow checks quota q for the given action and caller id, and converts a
// rejection into an *Error carrying the time until the window resets.
func (l *Limiter) Allow(q Quota, action, id string) error {
	res := l.Check(action+":"+id, q.Max, q.Window)
	if res.Allowed {
		return nil
	}
	return &Error{RetryAfter: res.ResetAt.Sub(l.now())}
}
