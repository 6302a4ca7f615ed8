package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wiselab/pmsshell/internal/infrastructure/resilience"
)

// ErrUnavailable is returned while the backend is being shed after
// repeated failures.
var ErrUnavailable = errors.New("location provider unavailable")

// GuardOptions configures a Guarded provider.
type GuardOptions struct {
	// MaximumAge is how long a reading may be reused. Zero disables reuse.
	MaximumAge time.Duration
	// FailureThreshold consecutive failures open the breaker (3).
	FailureThreshold uint32
	// Cooldown keeps the breaker open (30s).
	Cooldown time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Guarded reuses recent readings and stops calling a failing backend.
type Guarded struct {
	backend Provider
	breaker *resilience.Breaker
	maxAge  time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	last   Fix
	lastAt time.Time
}

// NewGuarded wraps backend.
func NewGuarded(backend Provider, opts GuardOptions) *Guarded {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	threshold := opts.FailureThreshold
	logger := opts.Logger

	breaker := resilience.New("location", resilience.Settings{
		Cooldown: opts.Cooldown,
		Trip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// A reading abandoned by its caller says nothing about the backend.
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Location breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
		Now: opts.Now,
	})

	return &Guarded{
		backend: backend,
		breaker: breaker,
		maxAge:  opts.MaximumAge,
		logger:  logger,
		now:     opts.Now,
	}
}

// CurrentFix implements Provider.
func (g *Guarded) CurrentFix(ctx context.Context) (Fix, error) {
	if fix, ok := g.cached(); ok {
		g.logger.Debug("Reusing recent position fix")
		return fix, nil
	}

	fix, err := resilience.Call(g.breaker, func() (Fix, error) {
		return g.backend.CurrentFix(ctx)
	})
	if errors.Is(err, resilience.ErrOpen) {
		return Fix{}, ErrUnavailable
	}
	if err != nil {
		return Fix{}, err
	}

	g.mu.Lock()
	g.last, g.lastAt = fix, g.now()
	g.mu.Unlock()
	return fix, nil
}

// BreakerState reports whether the backend is currently shed.
func (g *Guarded) BreakerState() resilience.State {
	return g.breaker.State()
}

func (g *Guarded) cached() (Fix, bool) {
	if g.maxAge <= 0 {
		return Fix{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastAt.IsZero() || g.now().Sub(g.lastAt) > g.maxAge {
		return Fix{}, false
	}
	return g.last, true
}
