package navigation

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wiselab/pmsshell/internal/prompt"
)

// Handled reports what a back signal did.
type Handled int

const (
	// ForwardToContent means the content surface ran its own back action.
	ForwardToContent Handled = iota
	// ShowExitPrompt means the exit confirmation was shown.
	ShowExitPrompt
)

// String returns the wire name of h.
func (h Handled) String() string {
	switch h {
	case ForwardToContent:
		return "forward-to-content"
	case ShowExitPrompt:
		return "show-exit-prompt"
	default:
		return "unknown"
	}
}

// Surface is the part of the content surface the tracker drives.
type Surface interface {
	GoBack() error
}

// Exiter terminates the host application.
type Exiter interface {
	Exit()
}

// ExiterFunc adapts a function to Exiter.
type ExiterFunc func()

// Exit calls f.
func (f ExiterFunc) Exit() { f() }

// ExitDialog is the confirmation shown when there is no history to go back to.
var ExitDialog = prompt.Dialog{
	Title:   "Exit",
	Message: "Do you want to close the app?",
	Options: []string{"Cancel", "Exit"},
	Cancel:  0,
	Confirm: 1,
}

// Tracker caches the content surface's back-navigation state and decides
// where a hardware back signal goes.
type Tracker struct {
	canGoBack atomic.Bool
	url       atomic.Pointer[string]

	surface  Surface
	prompter prompt.Prompter
	exiter   Exiter
	logger   *zap.Logger
}

// NewTracker creates a tracker for one content surface. canGoBack starts
// false until the surface reports its first navigation.
func NewTracker(surface Surface, prompter prompt.Prompter, exiter Exiter, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		surface:  surface,
		prompter: prompter,
		exiter:   exiter,
		logger:   logger,
	}
}

// OnNavigationStateChanged records the latest navigation state.
func (t *Tracker) OnNavigationStateChanged(canGoBack bool, url string) {
	t.canGoBack.Store(canGoBack)
	t.url.Store(&url)
	t.logger.Debug("Navigation state changed",
		zap.Bool("can_go_back", canGoBack),
		zap.String("url", url),
	)
}

// CanGoBack reports the cached navigation state.
func (t *Tracker) CanGoBack() bool {
	return t.canGoBack.Load()
}

// URL reports the last location the surface navigated to.
func (t *Tracker) URL() string {
	if u := t.url.Load(); u != nil {
		return *u
	}
	return ""
}

// HandleBackSignal consumes a hardware back signal. With history it is
// forwarded to the content surface; without, the exit confirmation is shown
// and blocks until answered. The signal never falls through to the OS.
func (t *Tracker) HandleBackSignal(ctx context.Context) Handled {
	if t.canGoBack.Load() {
		if err := t.surface.GoBack(); err != nil {
			t.logger.Warn("Forwarding back to content surface failed", zap.Error(err))
		}
		return ForwardToContent
	}

	choice, err := t.prompter.Choose(ctx, ExitDialog)
	if err != nil {
		t.logger.Error("Exit prompt failed", zap.Error(err))
		return ShowExitPrompt
	}
	if choice == ExitDialog.Confirm {
		t.logger.Info("Exit confirmed")
		t.exiter.Exit()
	}
	return ShowExitPrompt
}
