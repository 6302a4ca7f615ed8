package permissions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiselab/pmsshell/internal/prompt"
)

// pickPrompter always answers with the same option index.
type pickPrompter struct {
	choice int
	shown  int
}

func (p *pickPrompter) Choose(_ context.Context, _ prompt.Dialog) (int, error) {
	p.shown++
	return p.choice, nil
}

func TestEmulatedGrantPrecise(t *testing.T) {
	p := &pickPrompter{choice: choicePrecise}
	platform := NewEmulatedGrantPlatform("", p)
	ctx := context.Background()

	answers, err := platform.RequestMultiple(ctx, locationPermissions)
	require.NoError(t, err)
	assert.Equal(t, StatusGranted, answers[FineLocation])
	assert.Equal(t, StatusGranted, answers[CoarseLocation])

	held, err := platform.Check(ctx, FineLocation)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestEmulatedGrantApproximate(t *testing.T) {
	platform := NewEmulatedGrantPlatform("", &pickPrompter{choice: choiceApproximate})

	answers, err := platform.RequestMultiple(context.Background(), locationPermissions)
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, answers[FineLocation])
	assert.Equal(t, StatusGranted, answers[CoarseLocation])
}

func TestEmulatedGrantDenialCanBeAskedAgain(t *testing.T) {
	p := &pickPrompter{choice: choiceDeny}
	platform := NewEmulatedGrantPlatform("", p)
	ctx := context.Background()

	_, err := platform.RequestMultiple(ctx, locationPermissions)
	require.NoError(t, err)
	_, err = platform.RequestMultiple(ctx, locationPermissions)
	require.NoError(t, err)

	assert.Equal(t, 2, p.shown)
}

func TestEmulatedGrantBlockedIsNotPromptedAgain(t *testing.T) {
	p := &pickPrompter{choice: choiceDenyAlways}
	platform := NewEmulatedGrantPlatform("", p)
	ctx := context.Background()

	answers, err := platform.RequestMultiple(ctx, locationPermissions)
	require.NoError(t, err)
	assert.Equal(t, StatusNeverAskAgain, answers[FineLocation])

	answers, err = platform.RequestMultiple(ctx, locationPermissions)
	require.NoError(t, err)
	assert.Equal(t, StatusNeverAskAgain, answers[CoarseLocation])
	assert.Equal(t, 1, p.shown)
}

func TestEmulatedGrantPersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "permissions.yaml")
	ctx := context.Background()

	first := NewEmulatedGrantPlatform(path, &pickPrompter{choice: choicePrecise})
	_, err := first.RequestMultiple(ctx, locationPermissions)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ACCESS_FINE_LOCATION")
	assert.Contains(t, string(data), "granted")

	second := NewEmulatedGrantPlatform(path, &pickPrompter{choice: choiceDeny})
	held, err := second.Check(ctx, CoarseLocation)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestEmulatedGrantWithCoordinator(t *testing.T) {
	p := &pickPrompter{choice: choicePrecise}
	c := NewGrantCoordinator(NewEmulatedGrantPlatform("", p), nil, nil)
	ctx := context.Background()

	res, err := c.Request(ctx)
	require.NoError(t, err)
	assert.True(t, res.Granted())

	// Second cycle finds the grant and never prompts.
	res, err = c.Request(ctx)
	require.NoError(t, err)
	assert.True(t, res.Granted())
	assert.Nil(t, res.Results)
	assert.Equal(t, 1, p.shown)
}

func TestEmulatedAuthorizationAsksOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	p := &pickPrompter{choice: AuthorizationDialog.Cancel}
	platform := NewEmulatedAuthorizationPlatform(path, p)
	ctx := context.Background()

	auth, err := platform.RequestAuthorization(ctx, WhenInUse)
	require.NoError(t, err)
	assert.Equal(t, AuthorizationDenied, auth)

	auth, err = platform.RequestAuthorization(ctx, WhenInUse)
	require.NoError(t, err)
	assert.Equal(t, AuthorizationDenied, auth)
	assert.Equal(t, 1, p.shown)

	reopened := NewEmulatedAuthorizationPlatform(path, &pickPrompter{choice: AuthorizationDialog.Confirm})
	auth, err = reopened.RequestAuthorization(ctx, WhenInUse)
	require.NoError(t, err)
	assert.Equal(t, AuthorizationDenied, auth, "answer survives restart")
}

func TestEmulatedAuthorizationGranted(t *testing.T) {
	platform := NewEmulatedAuthorizationPlatform("", &pickPrompter{choice: AuthorizationDialog.Confirm})

	auth, err := platform.RequestAuthorization(context.Background(), WhenInUse)
	require.NoError(t, err)
	assert.Equal(t, AuthorizationGranted, auth)
}

func TestEmulatedAuthorizationOnlyWhenInUse(t *testing.T) {
	platform := NewEmulatedAuthorizationPlatform("", &pickPrompter{choice: AuthorizationDialog.Confirm})

	auth, err := platform.RequestAuthorization(context.Background(), "always")
	require.NoError(t, err)
	assert.Equal(t, AuthorizationRestricted, auth)
}

func TestCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grants: [not, a, map"), 0o600))

	_, err := NewEmulatedGrantPlatform(path, &pickPrompter{}).Check(context.Background(), FineLocation)
	assert.Error(t, err)
}
