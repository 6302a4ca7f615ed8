package permissions

import (
	"context"

	"go.uber.org/zap"

	"github.com/wiselab/pmsshell/internal/prompt"
)

// SettingsDialog offers the way out of a permanent denial.
var SettingsDialog = prompt.Dialog{
	Title:   "Location permission",
	Message: "Location access is turned off for this app. Open settings to allow it?",
	Options: []string{"Cancel", "Open Settings"},
	Cancel:  0,
	Confirm: 1,
}

// SettingsRedirect asks whether to open the system settings and opens them.
type SettingsRedirect struct {
	prompter prompt.Prompter
	opener   prompt.Opener
	url      string
	logger   *zap.Logger
}

// NewSettingsRedirect creates a redirect to url.
func NewSettingsRedirect(prompter prompt.Prompter, opener prompt.Opener, url string, logger *zap.Logger) *SettingsRedirect {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsRedirect{prompter: prompter, opener: opener, url: url, logger: logger}
}

// Offer shows the settings dialog and opens the settings on confirm.
func (s *SettingsRedirect) Offer(ctx context.Context) error {
	choice, err := s.prompter.Choose(ctx, SettingsDialog)
	if err != nil {
		return err
	}
	if choice != SettingsDialog.Confirm {
		s.logger.Debug("Settings redirect declined")
		return nil
	}
	s.logger.Info("Opening system settings", zap.String("url", s.url))
	return s.opener.Open(ctx, s.url)
}
