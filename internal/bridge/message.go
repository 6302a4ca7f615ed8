package bridge

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	// ErrMalformed is returned for input that is not a bridge message.
	ErrMalformed = errors.New("malformed bridge message")
	// ErrUnknownKind is returned for a well-formed message of a kind this
	// host does not handle. Newer content may send kinds we don't know.
	ErrUnknownKind = errors.New("unknown bridge message kind")
)

// codec matches encoding/json output byte for byte.
var codec = sonic.ConfigStd

// Kind tags an inbound message (content surface to host).
type Kind string

const (
	KindSaveToken       Kind = "SAVE_TOKEN"
	KindLogoutToken     Kind = "LOGOUT_TOKEN"
	KindWebviewReady    Kind = "WEBVIEW_READY"
	KindRequestLocation Kind = "REQUEST_LOCATION_PERMISSION"
	KindCallTel         Kind = "CALL_TEL"
)

func (k Kind) known() bool {
	switch k {
	case KindSaveToken, KindLogoutToken, KindWebviewReady, KindRequestLocation, KindCallTel:
		return true
	}
	return false
}

// Inbound is a parsed content-surface message.
type Inbound struct {
	Kind  Kind    `json:"callModuleType"`
	Token *string `json:"token,omitempty"`
}

// Parse decodes raw into an Inbound. A message without a kind, or a
// SAVE_TOKEN without a token, is malformed. For an unrecognised kind the
// returned message still carries the kind.
func Parse(raw string) (Inbound, error) {
	var msg Inbound
	if err := codec.UnmarshalFromString(raw, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Kind == "" {
		return Inbound{}, fmt.Errorf("%w: missing callModuleType", ErrMalformed)
	}
	if !msg.Kind.known() {
		return msg, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
	if msg.Kind == KindSaveToken && msg.Token == nil {
		return msg, fmt.Errorf("%w: SAVE_TOKEN without token", ErrMalformed)
	}
	return msg, nil
}

// Outbound type tags (host to content surface).
const (
	TypeAuthToken        = "AUTH_TOKEN"
	TypePermissionResult = "GPS_PERMISSION_RESULT"
	TypeError            = "GPS_ERROR"
	TypeCurrentPosition  = "CURRENT_POSITION"
)

// CodePermissionDenied is the GPS_ERROR code of every non-granted permission
// outcome.
const CodePermissionDenied = "PERMISSION_DENIED"

// Outbound is a message posted to the content surface.
type Outbound interface {
	MessageType() string
}

// AuthToken hands the stored token back to the content surface.
type AuthToken struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// PermissionResult reports a permission decision, granted or not.
type PermissionResult struct {
	Type    string            `json:"type"`
	Status  string            `json:"status"`
	Results map[string]string `json:"results,omitempty"`
}

// Error reports a permission denial or a failed position fix.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// CurrentPosition carries a position fix.
type CurrentPosition struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (AuthToken) MessageType() string        { return TypeAuthToken }
func (PermissionResult) MessageType() string { return TypePermissionResult }
func (Error) MessageType() string            { return TypeError }
func (CurrentPosition) MessageType() string  { return TypeCurrentPosition }

// NewAuthToken builds an AUTH_TOKEN message.
func NewAuthToken(token string) AuthToken {
	return AuthToken{Type: TypeAuthToken, Token: token}
}

// NewPermissionResult builds a GPS_PERMISSION_RESULT message.
func NewPermissionResult(status string, results map[string]string) PermissionResult {
	return PermissionResult{Type: TypePermissionResult, Status: status, Results: results}
}

// NewPermissionDenied builds the GPS_ERROR that follows a denial.
func NewPermissionDenied(status string) Error {
	return Error{
		Type:    TypeError,
		Code:    CodePermissionDenied,
		Status:  status,
		Message: "Location permissions denied",
	}
}

// NewLocationError builds the GPS_ERROR for a failed fix.
func NewLocationError(code, message string) Error {
	return Error{Type: TypeError, Code: code, Message: message}
}

// NewCurrentPosition builds a CURRENT_POSITION message.
func NewCurrentPosition(lat, lon float64) CurrentPosition {
	return CurrentPosition{Type: TypeCurrentPosition, Latitude: lat, Longitude: lon}
}

// Encode serializes msg for the content surface.
func Encode(msg Outbound) (string, error) {
	s, err := codec.MarshalToString(msg)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return s, nil
}
