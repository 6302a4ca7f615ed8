/*
Command shell runs the native host of the hybrid app.

It serves the device API and the bridge socket the embedded content surface
attaches to, and answers native dialogs (location permission, settings
redirect, exit confirmation) in the terminal or from PROMPT_MODE.

Usage:

	shell [-port 8000] [-platform android|ios]

Configuration comes from the environment (see internal/infrastructure/config),
optionally overlaid by the TOML file named in SHELL_CONFIG. Send SIGINT or
SIGTERM, or confirm the exit dialog, to stop.
*/
package main
