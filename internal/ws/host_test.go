package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiselab/pmsshell/internal/bridge"
	"github.com/wiselab/pmsshell/internal/infrastructure/monitoring"
	"github.com/wiselab/pmsshell/internal/navigation"
	"github.com/wiselab/pmsshell/internal/prompt"
	"github.com/wiselab/pmsshell/internal/providers/location"
	"github.com/wiselab/pmsshell/internal/providers/permissions"
	"github.com/wiselab/pmsshell/internal/providers/token"
)

type grantAll struct{}

func (grantAll) Request(context.Context) (permissions.Result, error) {
	return permissions.Result{Decision: permissions.Granted, Status: "granted"}, nil
}

func (grantAll) Platform() string { return permissions.PlatformIOS }

type testHost struct {
	host    *Host
	server  *httptest.Server
	metrics *monitoring.Metrics
	exits   int
}

func newTestHost(t *testing.T, mutate func(*Config)) *testHost {
	t.Helper()
	gin.SetMode(gin.TestMode)

	th := &testHost{metrics: monitoring.NewMetricsWith(prometheus.NewRegistry())}
	cfg := Config{
		Bridge: bridge.Config{
			Tokens:      token.NewMemory(),
			Permissions: grantAll{},
			Locator:     location.NewStatic(37.5, 127.0),
		},
		Prompter:     prompt.NewScripted(false),
		Exiter:       navigation.ExiterFunc(func() { th.exits++ }),
		AllowOrigin:  []string{"*"},
		MessageRate:  100,
		MessageBurst: 100,
		Metrics:      th.metrics,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	th.host = NewHost(cfg)

	router := gin.New()
	router.GET("/bridge", th.host.HandleConnection)
	th.server = httptest.NewServer(router)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = th.host.Shutdown(ctx)
		th.server.Close()
	})
	return th
}

func (th *testHost) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/bridge"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, th.host.Connected, time.Second, 5*time.Millisecond)
	return conn
}

func sendBridge(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(envelope{Event: EventMessage, Data: raw}))
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var e envelope
	require.NoError(t, sonic.Unmarshal(data, &e))
	return e
}

func TestBridgeRoundTrip(t *testing.T) {
	th := newTestHost(t, nil)
	conn := th.dial(t, nil)

	sendBridge(t, conn, `{"callModuleType":"SAVE_TOKEN","token":"abc123"}`)
	sendBridge(t, conn, `{"callModuleType":"WEBVIEW_READY"}`)

	frame := readFrame(t, conn)
	assert.Equal(t, EventPostMessage, frame.Event)
	assert.JSONEq(t, `{"type":"AUTH_TOKEN","token":"abc123"}`, frame.Data)
}

func TestLogoutThenReadyOverSocket(t *testing.T) {
	tokens := token.NewMemory()
	require.NoError(t, tokens.Save(context.Background(), "abc123"))
	th := newTestHost(t, func(cfg *Config) { cfg.Bridge.Tokens = tokens })
	conn := th.dial(t, nil)

	sendBridge(t, conn, `{"callModuleType":"LOGOUT_TOKEN"}`)
	sendBridge(t, conn, `{"callModuleType":"WEBVIEW_READY"}`)
	// The next reply must be the location result, not a stale token.
	sendBridge(t, conn, `{"callModuleType":"REQUEST_LOCATION_PERMISSION"}`)

	for i := 0; i < 2; i++ {
		frame := readFrame(t, conn)
		assert.NotContains(t, frame.Data, bridge.TypeAuthToken)
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(th.metrics.BridgeInFlight) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, testutil.ToFloat64(th.metrics.BridgeOutbound.WithLabelValues(bridge.TypeAuthToken)))
	_, ok, err := tokens.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocationRequestOverSocket(t *testing.T) {
	th := newTestHost(t, nil)
	conn := th.dial(t, nil)

	sendBridge(t, conn, `{"callModuleType":"REQUEST_LOCATION_PERMISSION"}`)

	first := readFrame(t, conn)
	assert.JSONEq(t, `{"type":"GPS_PERMISSION_RESULT","status":"granted"}`, first.Data)
	second := readFrame(t, conn)
	assert.JSONEq(t, `{"type":"CURRENT_POSITION","latitude":37.5,"longitude":127.0}`, second.Data)
}

func TestNavigationStateDrivesBack(t *testing.T) {
	th := newTestHost(t, nil)
	conn := th.dial(t, nil)

	require.NoError(t, conn.WriteJSON(envelope{Event: EventNavigationChange, CanGoBack: true, URL: "https://example.test/a"}))
	require.Eventually(t, th.host.Tracker().CanGoBack, time.Second, 5*time.Millisecond)

	assert.Equal(t, navigation.ForwardToContent, th.host.HandleBack(context.Background()))
	assert.Equal(t, EventGoBack, readFrame(t, conn).Event)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventNavigationChange, "canGoBack": false}))
	require.Eventually(t, func() bool { return !th.host.Tracker().CanGoBack() }, time.Second, 5*time.Millisecond)

	assert.Equal(t, navigation.ShowExitPrompt, th.host.HandleBack(context.Background()))
	assert.Zero(t, th.exits, "cancelled prompt keeps the host running")
	assert.Equal(t, 1.0, testutil.ToFloat64(th.metrics.BackSignals.WithLabelValues("show-exit-prompt")))
}

func TestBackWithoutSurfaceShowsExitPrompt(t *testing.T) {
	th := newTestHost(t, func(c *Config) { c.Prompter = prompt.NewScripted(true) })

	assert.Equal(t, navigation.ShowExitPrompt, th.host.HandleBack(context.Background()))
	assert.Equal(t, 1, th.exits)
}

func TestNewConnectionReplacesOld(t *testing.T) {
	th := newTestHost(t, nil)
	first := th.dial(t, nil)

	require.NoError(t, first.WriteJSON(envelope{Event: EventNavigationChange, CanGoBack: true}))
	require.Eventually(t, th.host.Tracker().CanGoBack, time.Second, 5*time.Millisecond)

	second := th.dial(t, nil)
	require.Eventually(t, func() bool { return !th.host.Tracker().CanGoBack() }, time.Second, 5*time.Millisecond,
		"new surface starts without history")

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "old surface is closed: %v", err)

	sendBridge(t, second, `{"callModuleType":"REQUEST_LOCATION_PERMISSION"}`)
	assert.Equal(t, EventPostMessage, readFrame(t, second).Event)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(th.metrics.WSConnections) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMessageRateLimit(t *testing.T) {
	th := newTestHost(t, func(c *Config) {
		c.MessageRate = 1
		c.MessageBurst = 1
	})
	conn := th.dial(t, nil)

	for i := 0; i < 3; i++ {
		sendBridge(t, conn, `{"callModuleType":"CALL_TEL"}`)
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(th.metrics.BridgeInbound.WithLabelValues("rate_limited", "dropped")) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(th.metrics.BridgeInbound.WithLabelValues("CALL_TEL", "noop")))
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	th := newTestHost(t, nil)
	conn := th.dial(t, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, conn.WriteJSON(envelope{Event: "scroll"}))
	sendBridge(t, conn, `{"callModuleType":"REQUEST_LOCATION_PERMISSION"}`)

	assert.Equal(t, EventPostMessage, readFrame(t, conn).Event, "connection survives bad frames")
}

func TestOriginCheck(t *testing.T) {
	th := newTestHost(t, func(c *Config) { c.AllowOrigin = []string{"https://mobile.example.test"} })
	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/bridge"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	conn := th.dial(t, http.Header{"Origin": {"https://mobile.example.test"}})
	assert.NotNil(t, conn)
}

func TestShutdownClosesSurface(t *testing.T) {
	th := newTestHost(t, nil)
	conn := th.dial(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, th.host.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.False(t, th.host.Connected())
}

func TestSurfaceAfterShutdownIsRejected(t *testing.T) {
	th := newTestHost(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, th.host.Shutdown(ctx))

	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/bridge"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.False(t, th.host.Connected())
	assert.Zero(t, testutil.ToFloat64(th.metrics.WSConnections))

	// A second shutdown has nothing left to wait for.
	require.NoError(t, th.host.Shutdown(ctx))
}
