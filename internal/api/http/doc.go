// Package http provides the device API handlers.
//
// Routes:
//
//	GET  /             host info
//	GET  /health       surface and backend state
//	POST /device/back  hardware back signal
//	GET  /metrics      Prometheus metrics
//
// The WebSocket route the content surface attaches to is served by the ws
// package.
package http
