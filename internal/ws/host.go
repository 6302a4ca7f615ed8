package ws

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wiselab/pmsshell/internal/bridge"
	"github.com/wiselab/pmsshell/internal/infrastructure/monitoring"
	"github.com/wiselab/pmsshell/internal/navigation"
	"github.com/wiselab/pmsshell/internal/prompt"
)

// maxFrameSize bounds one inbound frame.
const maxFrameSize = 64 << 10

// Config wires a Host.
type Config struct {
	// Bridge collaborators. Poster is set by the host.
	Bridge   bridge.Config
	Prompter prompt.Prompter
	Exiter   navigation.Exiter
	// AllowOrigin lists accepted Origin headers; "*" accepts any.
	AllowOrigin  []string
	MessageRate  int
	MessageBurst int
	Logger       *zap.Logger
	Metrics      *monitoring.Metrics
}

// Host owns the content surface connection. One surface is active at a
// time; a new connection replaces the old one. Bridge and navigation state
// live for the whole host so a reconnecting surface picks up where the
// previous one left off.
type Host struct {
	surface    active
	dispatcher *bridge.Dispatcher
	tracker    *navigation.Tracker
	upgrader   websocket.Upgrader
	cfg        Config
	logger     *zap.Logger
	metrics    *monitoring.Metrics

	wg sync.WaitGroup
}

// NewHost creates a host.
func NewHost(cfg Config) *Host {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = cfg.Bridge.Metrics
	}
	if cfg.Metrics == nil {
		cfg.Metrics = monitoring.NewMetricsWith(prometheus.NewRegistry())
	}

	h := &Host{cfg: cfg, logger: cfg.Logger, metrics: cfg.Metrics}

	bc := cfg.Bridge
	bc.Poster = &h.surface
	bc.Logger = cfg.Logger.Named("bridge")
	bc.Metrics = cfg.Metrics
	h.dispatcher = bridge.New(bc)
	h.tracker = navigation.NewTracker(&h.surface, cfg.Prompter, cfg.Exiter, cfg.Logger.Named("navigation"))

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Tracker returns the navigation tracker fed by the surface.
func (h *Host) Tracker() *navigation.Tracker {
	return h.tracker
}

// Connected reports whether a content surface is attached.
func (h *Host) Connected() bool {
	return h.surface.get() != nil
}

// HandleConnection upgrades the request and serves the surface protocol
// until the connection closes or is replaced.
func (h *Host) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s := newSurface(uuid.NewString(), conn)
	logger := h.logger.With(zap.String("surface_id", s.ID()))

	prev, ok := h.surface.attach(s, func() { h.wg.Add(1) })
	if !ok {
		logger.Info("Rejecting content surface, host is shutting down")
		s.close(websocket.CloseGoingAway, "host shutting down")
		return
	}
	if prev != nil {
		logger.Info("Replacing content surface", zap.String("previous_id", prev.ID()))
		prev.close(websocket.CloseGoingAway, "replaced by a new surface")
	}
	// A fresh surface has no history until it reports otherwise.
	h.tracker.OnNavigationStateChanged(false, "")

	h.metrics.IncWSConnections()
	defer func() {
		if h.surface.release(s) {
			_ = conn.Close()
		}
		h.metrics.DecWSConnections()
		h.wg.Done()
		logger.Info("Content surface disconnected")
	}()

	logger.Info("Content surface connected", zap.String("remote", c.Request.RemoteAddr))
	h.serve(c.Request.Context(), conn, logger)
}

func (h *Host) serve(ctx context.Context, conn *websocket.Conn, logger *zap.Logger) {
	conn.SetReadLimit(maxFrameSize)
	limiter := h.newLimiter()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Surface read failed", zap.Error(err))
			}
			return
		}

		var e envelope
		if err := sonic.ConfigStd.Unmarshal(frame, &e); err != nil {
			logger.Debug("Dropping malformed surface frame", zap.Error(err))
			continue
		}

		switch e.Event {
		case EventMessage:
			if !limiter.Allow() {
				logger.Warn("Bridge message rate exceeded, dropping message")
				h.metrics.RecordInbound("rate_limited", "dropped")
				continue
			}
			h.dispatcher.Dispatch(ctx, e.Data)
		case EventNavigationChange:
			h.tracker.OnNavigationStateChanged(e.CanGoBack, e.URL)
		default:
			logger.Debug("Ignoring surface event", zap.String("event", e.Event))
		}
	}
}

func (h *Host) newLimiter() *rate.Limiter {
	if h.cfg.MessageRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.cfg.MessageBurst
	if burst < 1 {
		burst = h.cfg.MessageRate
	}
	return rate.NewLimiter(rate.Limit(h.cfg.MessageRate), burst)
}

// HandleBack routes a hardware back signal through the tracker.
func (h *Host) HandleBack(ctx context.Context) navigation.Handled {
	handled := h.tracker.HandleBackSignal(ctx)
	h.metrics.RecordBackSignal(handled.String())
	return handled
}

// Shutdown closes the active surface, rejects new ones, and waits for
// connections and in-flight bridge handlers to finish or for ctx to end.
func (h *Host) Shutdown(ctx context.Context) error {
	if s := h.surface.shut(); s != nil {
		s.close(websocket.CloseGoingAway, "host shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		h.dispatcher.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowOrigin {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	h.logger.Warn("Rejected surface origin", zap.String("origin", origin))
	return false
}
