// Package bridge implements the message protocol between the host and its
// embedded content surface.
//
// Inbound messages are JSON objects tagged by callModuleType:
//
//	SAVE_TOKEN{token}             store the auth token
//	LOGOUT_TOKEN                  clear it
//	WEBVIEW_READY                 reply AUTH_TOKEN when a token is stored
//	REQUEST_LOCATION_PERMISSION   run a permission cycle, then read the position
//	CALL_TEL                      accepted, handled outside the bridge
//
// Outbound messages are tagged by type: AUTH_TOKEN, GPS_PERMISSION_RESULT,
// GPS_ERROR and CURRENT_POSITION. Unknown inbound kinds are ignored so that
// newer content keeps working against an older host.
package bridge
