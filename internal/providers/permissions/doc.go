// Package permissions runs the device location permission cycle.
//
// Two platform models exist, chosen once at startup:
//
//   - Grant model (android): both location permissions are checked; if
//     neither is held they are requested together. Either grant wins. A
//     "never ask again" answer is a permanent denial and comes with a
//     settings redirect the caller can offer the user.
//   - Authorization model (ios): a single "while in use" authorization
//     prompt. Any answer other than granted is a denial.
//
// A cycle always starts from scratch; the coordinators keep no decision.
// The emulated platforms stand in for the OS permission API on a headless
// host and, like an OS, remember grants in a YAML state file.
package permissions
