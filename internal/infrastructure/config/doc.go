// Package config provides 12-factor configuration management for the shell host.
//
// Configuration is loaded from environment variables with sensible defaults.
// A TOML file named by SHELL_CONFIG is decoded on top of the environment,
// so keys present in the file win. When dialogs are drawn on the terminal
// and LOG_FILE is unset, logs go to TerminalLogFile.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Surface: content origin, bridge socket path, inbound message rate
//   - Logging: Log level, output format and file
//   - RateLimit: Per-IP rate limiting configuration
//   - Token: auth token backend (file, redis, memory)
//   - Permission: platform permission model (android, ios)
//   - Location: position facility (geoip, static)
//   - Prompt: native dialog mode (terminal, cancel, confirm)
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Host listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
