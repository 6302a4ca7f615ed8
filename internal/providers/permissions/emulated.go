package permissions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/wiselab/pmsshell/internal/prompt"
)

// platformState is the OS-side grant record the emulated platforms keep.
// The coordinators never read it; like a real OS, the platform remembers
// grants across restarts.
type platformState struct {
	Grants        map[Permission]Status `yaml:"grants,omitempty"`
	Authorization Authorization         `yaml:"authorization,omitempty"`
}

// stateFile persists platformState as YAML. An empty path keeps the state
// in memory only.
type stateFile struct {
	path  string
	mu    sync.Mutex
	cache *platformState
}

func newStateFile(path string) *stateFile {
	return &stateFile{path: path}
}

// update loads the state, applies fn and writes it back when fn reports a
// change.
func (f *stateFile) update(fn func(*platformState) (bool, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return err
	}
	changed, err := fn(st)
	if err != nil || !changed {
		return err
	}
	return f.store(st)
}

func (f *stateFile) load() (*platformState, error) {
	if f.cache != nil {
		return f.cache, nil
	}
	st := &platformState{Grants: map[Permission]Status{}}
	if f.path != "" {
		data, err := os.ReadFile(f.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read permission state: %w", err)
		default:
			if err := yaml.Unmarshal(data, st); err != nil {
				return nil, fmt.Errorf("parse permission state: %w", err)
			}
			if st.Grants == nil {
				st.Grants = map[Permission]Status{}
			}
		}
	}
	f.cache = st
	return st, nil
}

func (f *stateFile) store(st *platformState) error {
	f.cache = st
	if f.path == "" {
		return nil
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode permission state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create permission state dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write permission state: %w", err)
	}
	return nil
}

// Choices of the emulated runtime grant dialog.
const (
	choicePrecise = iota
	choiceApproximate
	choiceDeny
	choiceDenyAlways
)

// GrantDialog stands in for the OS runtime permission dialog.
var GrantDialog = prompt.Dialog{
	Title:   "Location permission",
	Message: "Allow the app to access this device's location?",
	Options: []string{"Precise", "Approximate", "Don't allow", "Don't allow, don't ask again"},
	Cancel:  choiceDeny,
	Confirm: choicePrecise,
}

// EmulatedGrantPlatform behaves like an explicit runtime grant OS: granted
// and blocked permissions are remembered, blocked ones are never prompted
// again, and plain denials may be asked again.
type EmulatedGrantPlatform struct {
	state    *stateFile
	prompter prompt.Prompter
}

// NewEmulatedGrantPlatform creates the platform, remembering grants in the
// YAML file at statePath (in memory when empty).
func NewEmulatedGrantPlatform(statePath string, prompter prompt.Prompter) *EmulatedGrantPlatform {
	return &EmulatedGrantPlatform{state: newStateFile(statePath), prompter: prompter}
}

// Check implements GrantPlatform.
func (p *EmulatedGrantPlatform) Check(_ context.Context, perm Permission) (bool, error) {
	var held bool
	err := p.state.update(func(st *platformState) (bool, error) {
		held = st.Grants[perm] == StatusGranted
		return false, nil
	})
	return held, err
}

// RequestMultiple implements GrantPlatform.
func (p *EmulatedGrantPlatform) RequestMultiple(ctx context.Context, perms []Permission) (map[Permission]Status, error) {
	answers := make(map[Permission]Status, len(perms))
	err := p.state.update(func(st *platformState) (bool, error) {
		var ask []Permission
		for _, perm := range perms {
			switch st.Grants[perm] {
			case StatusGranted, StatusNeverAskAgain:
				answers[perm] = st.Grants[perm]
			default:
				ask = append(ask, perm)
			}
		}
		if len(ask) == 0 {
			return false, nil
		}

		choice, err := p.prompter.Choose(ctx, GrantDialog)
		if err != nil {
			return false, fmt.Errorf("grant dialog: %w", err)
		}
		for _, perm := range ask {
			status := answerFor(perm, choice)
			answers[perm] = status
			st.Grants[perm] = status
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func answerFor(perm Permission, choice int) Status {
	switch choice {
	case choicePrecise:
		return StatusGranted
	case choiceApproximate:
		if perm == CoarseLocation {
			return StatusGranted
		}
		return StatusDenied
	case choiceDenyAlways:
		return StatusNeverAskAgain
	default:
		return StatusDenied
	}
}

// AuthorizationDialog stands in for the OS one-shot authorization dialog.
var AuthorizationDialog = prompt.Dialog{
	Title:   "Location permission",
	Message: "Allow the app to use your location while you are using it?",
	Options: []string{"Allow While Using App", "Don't Allow"},
	Cancel:  1,
	Confirm: 0,
}

// EmulatedAuthorizationPlatform behaves like a one-shot authorization OS:
// the user is asked once and the answer stands.
type EmulatedAuthorizationPlatform struct {
	state    *stateFile
	prompter prompt.Prompter
}

// NewEmulatedAuthorizationPlatform creates the platform, remembering the
// answer in the YAML file at statePath (in memory when empty).
func NewEmulatedAuthorizationPlatform(statePath string, prompter prompt.Prompter) *EmulatedAuthorizationPlatform {
	return &EmulatedAuthorizationPlatform{state: newStateFile(statePath), prompter: prompter}
}

// RequestAuthorization implements AuthorizationPlatform.
func (p *EmulatedAuthorizationPlatform) RequestAuthorization(ctx context.Context, level string) (Authorization, error) {
	if level != WhenInUse {
		return AuthorizationRestricted, nil
	}

	var auth Authorization
	err := p.state.update(func(st *platformState) (bool, error) {
		if st.Authorization != "" {
			auth = st.Authorization
			return false, nil
		}
		choice, err := p.prompter.Choose(ctx, AuthorizationDialog)
		if err != nil {
			return false, fmt.Errorf("authorization dialog: %w", err)
		}
		auth = AuthorizationDenied
		if choice == AuthorizationDialog.Confirm {
			auth = AuthorizationGranted
		}
		st.Authorization = auth
		return true, nil
	})
	return auth, err
}
