package location

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// Fix is a single position reading.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// Provider reads the device's current position. It is called only after
// location permission was granted and never retries on its own.
type Provider interface {
	CurrentFix(ctx context.Context) (Fix, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Fix, error)

// CurrentFix calls f.
func (f ProviderFunc) CurrentFix(ctx context.Context) (Fix, error) {
	return f(ctx)
}

// Error codes reported to the content surface.
const (
	CodeTimeout             = "TIMEOUT"
	CodePositionUnavailable = "POSITION_UNAVAILABLE"
)

// ErrTimeout marks a reading that did not complete in time.
var ErrTimeout = errors.New("location request timed out")

// Classify maps a provider error to its error code.
func Classify(err error) string {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CodeTimeout
	}
	return CodePositionUnavailable
}

// Static reports a fixed position.
type Static struct {
	fix Fix
}

// NewStatic creates a provider that always reports lat, lon.
func NewStatic(lat, lon float64) *Static {
	return &Static{fix: Fix{Latitude: lat, Longitude: lon}}
}

// CurrentFix implements Provider.
func (s *Static) CurrentFix(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	return s.fix, nil
}

// Backend names.
const (
	BackendGeoIP  = "geoip"
	BackendStatic = "static"
)

// Options configures New.
type Options struct {
	Backend    string
	Endpoint   string
	Timeout    time.Duration
	MaximumAge time.Duration
	Latitude   float64
	Longitude  float64
	Logger     *zap.Logger
}

// New builds the configured backend wrapped in a Guarded provider.
func New(opts Options) (*Guarded, error) {
	var backend Provider
	switch opts.Backend {
	case "", BackendGeoIP:
		backend = NewGeoIP(opts.Endpoint, opts.Timeout)
	case BackendStatic:
		backend = NewStatic(opts.Latitude, opts.Longitude)
	default:
		return nil, fmt.Errorf("unknown location backend %q", opts.Backend)
	}
	return NewGuarded(backend, GuardOptions{
		MaximumAge: opts.MaximumAge,
		Logger:     opts.Logger,
	}), nil
}
