package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func call(b *Breaker, ok bool) error {
	_, err := Call(b, func() (string, error) {
		if ok {
			return "ok", nil
		}
		return "", errBackend
	})
	return err
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		requests      []bool // true = success
		expectedState State
	}{
		{"stays closed on successes", []bool{true, true, true}, StateClosed},
		{"stays closed below threshold", []bool{false, false, true, false}, StateClosed},
		{"opens after consecutive failures", []bool{false, false, false}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", Settings{
				Trip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
				Now:  newFakeClock().Now,
			})

			for _, ok := range tt.requests {
				_ = call(b, ok)
			}

			assert.Equal(t, tt.expectedState, b.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	b := New("test", Settings{Now: newFakeClock().Now})

	require.NoError(t, call(b, true))
	counts := b.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	assert.ErrorIs(t, call(b, false), errBackend)
	counts = b.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerWindowClearsCounts(t *testing.T) {
	clock := newFakeClock()
	b := New("test", Settings{
		Window: time.Minute,
		Trip:   func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		Now:    clock.Now,
	})

	_ = call(b, false)
	clock.Advance(2 * time.Minute)
	_ = call(b, false)

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
}

func TestBreakerOpenRejects(t *testing.T) {
	b := New("test", Settings{
		Trip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		Now:  newFakeClock().Now,
	})

	_ = call(b, false)
	_ = call(b, false)
	require.Equal(t, StateOpen, b.State())

	called := false
	_, err := Call(b, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpen(t *testing.T) {
	clock := newFakeClock()
	b := New("test", Settings{
		Probes:   2,
		Cooldown: 10 * time.Second,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		Now:      clock.Now,
	})

	_ = call(b, false)
	_ = call(b, false)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(11 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, call(b, true))
	require.NoError(t, call(b, true))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := New("test", Settings{
		Cooldown: 10 * time.Second,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:      clock.Now,
	})

	_ = call(b, false)
	clock.Advance(11 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	_ = call(b, false)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIsFailure(t *testing.T) {
	b := New("test", Settings{
		Trip:      func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure: func(err error) bool { return err != nil && !errors.Is(err, context.Canceled) },
		Now:       newFakeClock().Now,
	})

	_, err := Call(b, func() (int, error) { return 0, context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCallbacks(t *testing.T) {
	clock := newFakeClock()
	var transitions []string

	b := New("test", Settings{
		Cooldown: 10 * time.Second,
		Trip:     func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
		Now: clock.Now,
	})

	_ = call(b, false)
	_ = call(b, false)
	clock.Advance(11 * time.Second)
	_ = b.State()
	require.NoError(t, call(b, true))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b := New("test", Settings{
		Trip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:  newFakeClock().Now,
	})

	assert.Panics(t, func() {
		_, _ = Call(b, func() (int, error) { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}
