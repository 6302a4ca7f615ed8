// Package ws attaches the embedded content surface to the host over a
// WebSocket.
//
// Frames are JSON objects tagged by event:
//
//	content -> host  {"event":"message","data":"<bridge message>"}
//	                 {"event":"navigationStateChange","canGoBack":true,"url":"..."}
//	host -> content  {"event":"postMessage","data":"<bridge message>"}
//	                 {"event":"goBack"}
//
// Bridge messages travel as strings inside the frame, exactly as the
// content surface's postMessage channel carries them.
//
// Example Usage:
//
//	host := ws.NewHost(ws.Config{Bridge: bridgeCfg, Prompter: p, Exiter: e})
//	router.GET("/bridge", host.HandleConnection)
package ws
