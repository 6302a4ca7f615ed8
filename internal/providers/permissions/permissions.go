package permissions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wiselab/pmsshell/internal/prompt"
)

// Decision is the outcome of one permission cycle.
type Decision int

const (
	Unknown Decision = iota
	Granted
	Denied
	DeniedPermanently
)

// String returns a stable name for logs and metrics.
func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case DeniedPermanently:
		return "denied-permanently"
	default:
		return "unknown"
	}
}

// Result is what a permission cycle reports to the bridge.
type Result struct {
	Decision Decision
	// Status is the platform's own word for the outcome ("granted",
	// "denied", "never_ask_again", "disabled", ...).
	Status string
	// Results holds the raw per-permission answers of a combined prompt.
	// Nil when no prompt was shown.
	Results map[string]string
	// Recovery, when set, offers the user a way out of the denial (open the
	// system settings). The caller runs it after reporting the result.
	Recovery func(ctx context.Context) error
}

// Granted reports whether location may be read.
func (r Result) Granted() bool {
	return r.Decision == Granted
}

// Coordinator runs one location permission cycle per call. Cycles are
// independent: nothing is remembered between calls.
type Coordinator interface {
	Request(ctx context.Context) (Result, error)
	Platform() string
}

// Platform names.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Options configures ForPlatform.
type Options struct {
	Platform    string
	StateFile   string
	SettingsURL string
	Prompter    prompt.Prompter
	Opener      prompt.Opener
	Logger      *zap.Logger
}

// ForPlatform picks the permission model once at startup. The host has no
// OS permission API of its own, so both models run on the emulated
// platforms, which keep grants in opts.StateFile and ask through
// opts.Prompter.
func ForPlatform(opts Options) (Coordinator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Platform {
	case PlatformAndroid:
		platform := NewEmulatedGrantPlatform(opts.StateFile, opts.Prompter)
		settings := NewSettingsRedirect(opts.Prompter, opts.Opener, opts.SettingsURL, logger)
		return NewGrantCoordinator(platform, settings, logger), nil
	case PlatformIOS:
		platform := NewEmulatedAuthorizationPlatform(opts.StateFile, opts.Prompter)
		return NewAuthorizationCoordinator(platform, logger), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", opts.Platform)
	}
}
