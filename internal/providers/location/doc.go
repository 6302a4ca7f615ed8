// Package location reads the device position for the bridge.
//
// Backends: geoip approximates the position from the host's public address
// over HTTP, static reports configured coordinates. New wraps the chosen
// backend in Guarded, which reuses a reading for up to MaximumAge and sheds
// a backend that keeps failing.
package location
