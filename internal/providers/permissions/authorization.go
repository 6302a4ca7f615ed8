package permissions

import (
	"context"

	"go.uber.org/zap"
)

// Authorization is the answer of a one-shot authorization prompt.
type Authorization string

const (
	AuthorizationGranted    Authorization = "granted"
	AuthorizationDenied     Authorization = "denied"
	AuthorizationDisabled   Authorization = "disabled"
	AuthorizationRestricted Authorization = "restricted"
)

// WhenInUse is the only authorization level the host asks for.
const WhenInUse = "whenInUse"

// AuthorizationPlatform is the one-shot authorization facility.
type AuthorizationPlatform interface {
	RequestAuthorization(ctx context.Context, level string) (Authorization, error)
}

// AuthorizationCoordinator runs the one-shot model. The platform gives no
// way to tell a temporary denial from a permanent one, so every non-granted
// answer is a plain denial.
type AuthorizationCoordinator struct {
	platform AuthorizationPlatform
	logger   *zap.Logger
}

// NewAuthorizationCoordinator creates a coordinator.
func NewAuthorizationCoordinator(platform AuthorizationPlatform, logger *zap.Logger) *AuthorizationCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationCoordinator{platform: platform, logger: logger}
}

// Platform implements Coordinator.
func (c *AuthorizationCoordinator) Platform() string {
	return PlatformIOS
}

// Request implements Coordinator.
func (c *AuthorizationCoordinator) Request(ctx context.Context) (Result, error) {
	auth, err := c.platform.RequestAuthorization(ctx, WhenInUse)
	if err != nil {
		c.logger.Error("Authorization request failed", zap.Error(err))
		return Result{Decision: Denied, Status: string(AuthorizationDenied)}, nil
	}

	c.logger.Debug("Authorization answered", zap.String("authorization", string(auth)))
	if auth == AuthorizationGranted {
		return Result{Decision: Granted, Status: string(auth)}, nil
	}
	if auth == "" {
		auth = AuthorizationDenied
	}
	return Result{Decision: Denied, Status: string(auth)}, nil
}
