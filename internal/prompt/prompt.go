package prompt

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoOptions is returned for a dialog without choices.
var ErrNoOptions = errors.New("dialog has no options")

// Dialog is a native modal with a fixed set of choices. Cancel is the index
// chosen when the user dismisses the dialog; Confirm is the affirmative
// choice.
type Dialog struct {
	Title   string
	Message string
	Options []string
	Cancel  int
	Confirm int
}

// Prompter shows native dialogs and blocks until a choice is made.
type Prompter interface {
	Choose(ctx context.Context, d Dialog) (int, error)
}

func (d Dialog) validate() error {
	if len(d.Options) == 0 {
		return ErrNoOptions
	}
	if d.Cancel < 0 || d.Cancel >= len(d.Options) || d.Confirm < 0 || d.Confirm >= len(d.Options) {
		return fmt.Errorf("dialog %q: cancel/confirm index out of range", d.Title)
	}
	return nil
}

// Scripted answers every dialog the same way without user interaction.
type Scripted struct {
	confirm bool
}

// NewScripted creates a Prompter that always confirms or always cancels.
func NewScripted(confirm bool) *Scripted {
	return &Scripted{confirm: confirm}
}

// Choose returns the dialog's confirm or cancel index.
func (s *Scripted) Choose(_ context.Context, d Dialog) (int, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}
	if s.confirm {
		return d.Confirm, nil
	}
	return d.Cancel, nil
}

// ForMode builds the Prompter named by mode ("terminal", "cancel", "confirm").
func ForMode(mode string) (Prompter, error) {
	switch mode {
	case "", "terminal":
		return NewTerminal(), nil
	case "cancel":
		return NewScripted(false), nil
	case "confirm":
		return NewScripted(true), nil
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", mode)
	}
}
