package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wiselab/pmsshell/internal/infrastructure/resilience"
	"github.com/wiselab/pmsshell/internal/navigation"
)

// Device is the host side of the content surface.
type Device interface {
	Connected() bool
	HandleBack(ctx context.Context) navigation.Handled
	Tracker() *navigation.Tracker
}

// BreakerReporter exposes a circuit breaker's state.
type BreakerReporter interface {
	BreakerState() resilience.State
}

// Info describes the host for GET /.
type Info struct {
	Service    string
	Version    string
	OriginURL  string
	BridgePath string
	Platform   string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	info     Info
	device   Device
	location BreakerReporter
	registry *prometheus.Registry
}

// NewHandlers creates a new handler set. location may be nil.
func NewHandlers(info Info, device Device, location BreakerReporter, registry *prometheus.Registry) *Handlers {
	return &Handlers{
		info:     info,
		device:   device,
		location: location,
		registry: registry,
	}
}

// Root describes the host and where the content surface attaches.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "online",
		"service":     h.info.Service,
		"version":     h.info.Version,
		"origin_url":  h.info.OriginURL,
		"bridge_path": h.info.BridgePath,
		"platform":    h.info.Platform,
	})
}

// Health reports surface and backend state.
func (h *Handlers) Health(c *gin.Context) {
	tracker := h.device.Tracker()
	resp := gin.H{
		"status": "healthy",
		"surface": gin.H{
			"connected":   h.device.Connected(),
			"can_go_back": tracker.CanGoBack(),
			"url":         tracker.URL(),
		},
	}
	if h.location != nil {
		state := h.location.BreakerState()
		resp["location"] = gin.H{"breaker": state.String()}
		if state == resilience.StateOpen {
			resp["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// DeviceBack delivers a hardware back signal. It blocks while the exit
// confirmation is shown.
func (h *Handlers) DeviceBack(c *gin.Context) {
	handled := h.device.HandleBack(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"handled": handled.String(),
	})
}

// Metrics serves the Prometheus registry.
func (h *Handlers) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}

// Register mounts the device API on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/device/back", h.DeviceBack)
	r.GET("/metrics", h.Metrics())
}
