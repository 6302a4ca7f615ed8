// Package middleware holds the gin middleware of the device API: CORS for
// the content origin and per-client rate limiting.
package middleware
