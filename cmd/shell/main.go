package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wiselab/pmsshell/internal/infrastructure/config"
	"github.com/wiselab/pmsshell/internal/infrastructure/logging"
	"github.com/wiselab/pmsshell/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	platform := flag.String("platform", "", "Permission model: android or ios (overrides HOST_PLATFORM)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *platform != "" {
		cfg.Permission.Platform = *platform
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Confirming the exit dialog ends the host like a signal does.
	srv, err := server.NewServer(ctx, cfg, server.Options{
		Logger: logger,
		Exit: func() {
			logger.Info("Exit requested from the back signal")
			stop()
		},
	})
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if runErr != nil {
		logger.Fatal("Server error", zap.Error(runErr))
	}
}

// newLogger writes to LOG_FILE when set. Config sets it whenever dialogs
// are drawn on the terminal.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	switch {
	case cfg.Logging.File != "":
		return logging.New(logging.FileConfig(cfg.Logging.Level, cfg.Logging.Development, cfg.Logging.File))
	case cfg.Logging.Development:
		lc := logging.DevelopmentConfig()
		lc.Level = cfg.Logging.Level
		return logging.New(lc)
	default:
		lc := logging.DefaultConfig()
		lc.Level = cfg.Logging.Level
		return logging.New(lc)
	}
}
