// Package logging provides structured logging using uber/zap.
//
// This package offers two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// When the host renders native dialogs in the terminal, output is sent to a
// file (FileConfig) so log lines never interleave with a dialog.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Host starting", zap.String("port", "8000"))
//	logger.Error("Token save failed", zap.Error(err))
package logging
