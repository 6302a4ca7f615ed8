// Package prompt shows the host's own native dialogs.
//
// The content surface renders all of its own error UI; the host only ever
// shows two kinds of dialog itself: the exit confirmation on a hardware back
// press with no history, and the settings redirect after a permanent
// permission denial. Headless hosts also use it to stand in for the OS
// permission prompt.
//
// Terminal draws the dialog with bubbletea; Scripted answers without asking,
// for unattended hosts.
package prompt
