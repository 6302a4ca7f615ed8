package permissions

import (
	"context"

	"go.uber.org/zap"
)

// Permission is an explicit runtime permission.
type Permission string

const (
	FineLocation   Permission = "android.permission.ACCESS_FINE_LOCATION"
	CoarseLocation Permission = "android.permission.ACCESS_COARSE_LOCATION"
)

// locationPermissions are requested together; either one is enough.
var locationPermissions = []Permission{FineLocation, CoarseLocation}

// Status is a per-permission answer from a runtime grant prompt.
type Status string

const (
	StatusGranted       Status = "granted"
	StatusDenied        Status = "denied"
	StatusNeverAskAgain Status = "never_ask_again"
)

// GrantPlatform is the explicit multi-permission grant facility.
type GrantPlatform interface {
	Check(ctx context.Context, p Permission) (bool, error)
	RequestMultiple(ctx context.Context, perms []Permission) (map[Permission]Status, error)
}

// State is a step of the grant cycle.
type State int

const (
	StateUnchecked State = iota
	StateChecking
	StateNeedPrompt
	StateGranted
	StateDenied
	StateDeniedPermanently
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateChecking:
		return "checking"
	case StateNeedPrompt:
		return "need-prompt"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	case StateDeniedPermanently:
		return "denied-permanently"
	default:
		return "unknown"
	}
}

// GrantCoordinator runs the grant model: check both location permissions,
// prompt for both together if neither is held, and read the combined answer.
type GrantCoordinator struct {
	platform GrantPlatform
	settings *SettingsRedirect
	logger   *zap.Logger

	// observe, when set, sees every state transition.
	observe func(State)
}

// NewGrantCoordinator creates a coordinator. settings may be nil, in which
// case a permanent denial carries no recovery.
func NewGrantCoordinator(platform GrantPlatform, settings *SettingsRedirect, logger *zap.Logger) *GrantCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrantCoordinator{platform: platform, settings: settings, logger: logger}
}

// Platform implements Coordinator.
func (c *GrantCoordinator) Platform() string {
	return PlatformAndroid
}

// Request implements Coordinator.
func (c *GrantCoordinator) Request(ctx context.Context) (Result, error) {
	state := StateUnchecked
	step := func(next State) {
		c.logger.Debug("Permission state", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
		if c.observe != nil {
			c.observe(next)
		}
	}

	step(StateChecking)
	for _, p := range locationPermissions {
		held, err := c.platform.Check(ctx, p)
		if err != nil {
			c.logger.Warn("Permission check failed", zap.String("permission", string(p)), zap.Error(err))
			continue
		}
		if held {
			step(StateGranted)
			return Result{Decision: Granted, Status: string(StatusGranted)}, nil
		}
	}

	step(StateNeedPrompt)
	answers, err := c.platform.RequestMultiple(ctx, locationPermissions)
	if err != nil {
		c.logger.Error("Permission request failed", zap.Error(err))
		step(StateDenied)
		return Result{Decision: Denied, Status: string(StatusDenied)}, nil
	}

	raw := make(map[string]string, len(answers))
	for p, s := range answers {
		raw[string(p)] = string(s)
	}

	switch {
	case anyStatus(answers, StatusGranted):
		step(StateGranted)
		return Result{Decision: Granted, Status: string(StatusGranted), Results: raw}, nil
	case anyStatus(answers, StatusNeverAskAgain):
		step(StateDeniedPermanently)
		res := Result{Decision: DeniedPermanently, Status: string(StatusNeverAskAgain), Results: raw}
		if c.settings != nil {
			res.Recovery = c.settings.Offer
		}
		return res, nil
	default:
		step(StateDenied)
		return Result{Decision: Denied, Status: string(StatusDenied), Results: raw}, nil
	}
}

func anyStatus(answers map[Permission]Status, want Status) bool {
	for _, p := range locationPermissions {
		if answers[p] == want {
			return true
		}
	}
	return false
}
