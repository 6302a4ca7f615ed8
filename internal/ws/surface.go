package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// ErrNoSurface is returned when no content surface is connected.
var ErrNoSurface = errors.New("no content surface connected")

// Surface events.
const (
	// content -> host
	EventMessage          = "message"
	EventNavigationChange = "navigationStateChange"
	// host -> content
	EventPostMessage = "postMessage"
	EventGoBack      = "goBack"
)

// envelope is one frame of the surface protocol.
type envelope struct {
	Event     string `json:"event"`
	Data      string `json:"data,omitempty"`
	CanGoBack bool   `json:"canGoBack,omitempty"`
	URL       string `json:"url,omitempty"`
}

const writeWait = 10 * time.Second

// Surface is a content surface reached over one WebSocket connection.
// Writes are serialized; gorilla allows one concurrent writer.
type Surface struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newSurface(id string, conn *websocket.Conn) *Surface {
	return &Surface{id: id, conn: conn}
}

// ID returns the connection id.
func (s *Surface) ID() string {
	return s.id
}

// PostMessage delivers a serialized bridge message.
func (s *Surface) PostMessage(data string) error {
	return s.write(envelope{Event: EventPostMessage, Data: data})
}

// GoBack runs the content surface's own back action.
func (s *Surface) GoBack() error {
	return s.write(envelope{Event: EventGoBack})
}

func (s *Surface) write(e envelope) error {
	frame, err := sonic.ConfigStd.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", e.Event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s frame: %w", e.Event, err)
	}
	return nil
}

func (s *Surface) close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = s.conn.Close()
}

// active forwards to whichever surface is currently connected. Late
// replies to a replaced surface reach its successor, like a reloaded page
// in the same view.
type active struct {
	mu      sync.RWMutex
	surface *Surface
	closed  bool
}

func (a *active) get() *Surface {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.surface
}

// attach installs s and returns the previous surface. It fails once shut
// has run. admit runs under the same lock, so shut never misses it.
func (a *active) attach(s *Surface, admit func()) (*Surface, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, false
	}
	admit()
	prev := a.surface
	a.surface = s
	return prev, true
}

// shut rejects later surfaces and detaches the current one.
func (a *active) shut() *Surface {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	prev := a.surface
	a.surface = nil
	return prev
}

// release clears s if it is still the active surface.
func (a *active) release(s *Surface) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface != s {
		return false
	}
	a.surface = nil
	return true
}

func (a *active) PostMessage(data string) error {
	s := a.get()
	if s == nil {
		return ErrNoSurface
	}
	return s.PostMessage(data)
}

func (a *active) GoBack() error {
	s := a.get()
	if s == nil {
		return ErrNoSurface
	}
	return s.GoBack()
}
