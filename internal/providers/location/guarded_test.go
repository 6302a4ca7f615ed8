package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiselab/pmsshell/internal/infrastructure/resilience"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type scriptedBackend struct {
	mu    sync.Mutex
	fixes []Fix
	errs  []error
	calls int
}

func (b *scriptedBackend) CurrentFix(context.Context) (Fix, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.calls
	b.calls++
	if i < len(b.errs) && b.errs[i] != nil {
		return Fix{}, b.errs[i]
	}
	if i < len(b.fixes) {
		return b.fixes[i], nil
	}
	return Fix{Latitude: float64(i), Longitude: float64(i)}, nil
}

func TestGuardedReusesRecentFix(t *testing.T) {
	c := newClock()
	backend := &scriptedBackend{fixes: []Fix{{1, 1}, {2, 2}}}
	g := NewGuarded(backend, GuardOptions{MaximumAge: 10 * time.Second, Now: c.Now})
	ctx := context.Background()

	fix, err := g.CurrentFix(ctx)
	require.NoError(t, err)
	assert.Equal(t, Fix{1, 1}, fix)

	c.Advance(5 * time.Second)
	fix, err = g.CurrentFix(ctx)
	require.NoError(t, err)
	assert.Equal(t, Fix{1, 1}, fix)
	assert.Equal(t, 1, backend.calls)

	c.Advance(6 * time.Second)
	fix, err = g.CurrentFix(ctx)
	require.NoError(t, err)
	assert.Equal(t, Fix{2, 2}, fix)
	assert.Equal(t, 2, backend.calls)
}

func TestGuardedNoReuseWithoutMaximumAge(t *testing.T) {
	backend := &scriptedBackend{}
	g := NewGuarded(backend, GuardOptions{})

	_, _ = g.CurrentFix(context.Background())
	_, _ = g.CurrentFix(context.Background())
	assert.Equal(t, 2, backend.calls)
}

func TestGuardedFailureIsNotRetried(t *testing.T) {
	boom := errors.New("no satellites")
	backend := &scriptedBackend{errs: []error{boom}}
	g := NewGuarded(backend, GuardOptions{MaximumAge: time.Minute})

	_, err := g.CurrentFix(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, backend.calls)
}

func TestGuardedShedsFailingBackend(t *testing.T) {
	c := newClock()
	boom := errors.New("no satellites")
	backend := &scriptedBackend{errs: []error{boom, boom, boom}}
	g := NewGuarded(backend, GuardOptions{FailureThreshold: 3, Cooldown: 30 * time.Second, Now: c.Now})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.CurrentFix(ctx)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, resilience.StateOpen, g.BreakerState())

	_, err := g.CurrentFix(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "location provider unavailable", err.Error())
	assert.Equal(t, 3, backend.calls)

	c.Advance(31 * time.Second)
	_, err = g.CurrentFix(ctx)
	require.NoError(t, err)
	assert.Equal(t, resilience.StateClosed, g.BreakerState())
}

func TestGuardedCanceledDoesNotTrip(t *testing.T) {
	backend := &scriptedBackend{errs: []error{context.Canceled, context.Canceled}}
	g := NewGuarded(backend, GuardOptions{FailureThreshold: 1})

	_, err := g.CurrentFix(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, g.BreakerState())
}
