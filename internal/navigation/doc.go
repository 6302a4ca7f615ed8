// Package navigation routes the hardware back signal.
//
// The content surface reports every location change together with whether
// it has history to go back to. A back press is forwarded to the surface's
// own back action when it has history; otherwise the host asks whether to
// exit. Either way the press is consumed so the OS never closes the app on
// its own.
package navigation
