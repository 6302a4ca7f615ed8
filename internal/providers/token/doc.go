// Package token persists the content surface's authentication token.
//
// The host keeps at most one token. It is written when the content surface
// reports a login, read back when the surface signals it is ready, and
// deleted on logout. Expiry is the content surface's business.
//
// Backends:
//   - File: sealed file on disk (argon2id + XChaCha20-Poly1305)
//   - Redis: a single key, for hosts that share a token across processes
//   - Memory: process-local
//
// Every backend serializes its operations, so a Save racing a Clear leaves
// the store either holding the saved token or empty.
package token
