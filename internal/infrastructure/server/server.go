package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/wiselab/pmsshell/internal/api/http"
	"github.com/wiselab/pmsshell/internal/api/middleware"
	"github.com/wiselab/pmsshell/internal/bridge"
	"github.com/wiselab/pmsshell/internal/infrastructure/config"
	"github.com/wiselab/pmsshell/internal/infrastructure/logging"
	"github.com/wiselab/pmsshell/internal/infrastructure/monitoring"
	"github.com/wiselab/pmsshell/internal/navigation"
	"github.com/wiselab/pmsshell/internal/prompt"
	"github.com/wiselab/pmsshell/internal/providers/location"
	"github.com/wiselab/pmsshell/internal/providers/permissions"
	"github.com/wiselab/pmsshell/internal/providers/token"
	"github.com/wiselab/pmsshell/internal/ws"
)

// Version is reported on GET /.
const Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Options supplies what the configuration cannot.
type Options struct {
	Logger *logging.Logger
	// Exit terminates the host after the user confirms leaving the app.
	Exit func()
	// Prompter overrides PROMPT_MODE when set.
	Prompter prompt.Prompter
	// Opener overrides the system URL handler when set.
	Opener prompt.Opener
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	host    *ws.Host
	tokens  token.Store
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefault()
	}
	exit := opts.Exit
	if exit == nil {
		exit = func() {}
	}

	logger.Info("Initializing shell host",
		zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("origin", cfg.Surface.OriginURL),
		zap.String("platform", cfg.Permission.Platform),
	)

	metrics := monitoring.NewMetrics()

	prompter := opts.Prompter
	if prompter == nil {
		p, err := prompt.ForMode(cfg.Prompt.Mode)
		if err != nil {
			return nil, err
		}
		prompter = p
	}
	opener := opts.Opener
	if opener == nil {
		opener = prompt.SystemOpener{}
	}

	tokens, err := token.Open(ctx, token.Options{
		Backend: cfg.Token.Backend,
		Path:    cfg.Token.Path,
		Secret:  cfg.Token.Secret,
		Redis: token.RedisOptions{
			URL:         cfg.Token.RedisURL,
			Key:         cfg.Token.RedisKey,
			PoolSize:    cfg.Token.RedisPool,
			DialTimeout: cfg.Token.DialTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	logger.Info("Token store ready", zap.String("backend", cfg.Token.Backend))
	if (cfg.Token.Backend == "" || cfg.Token.Backend == "file") && cfg.Token.Secret == "" {
		logger.Warn("TOKEN_SECRET is empty, the sealed token file can be opened by anyone who can read it",
			zap.String("path", cfg.Token.Path))
	}

	perms, err := permissions.ForPlatform(permissions.Options{
		Platform:    cfg.Permission.Platform,
		StateFile:   cfg.Permission.StateFile,
		SettingsURL: cfg.Permission.SettingsURL,
		Prompter:    prompter,
		Opener:      opener,
		Logger:      logger.Named("permissions"),
	})
	if err != nil {
		closeStore(tokens, logger)
		return nil, err
	}

	locator, err := location.New(location.Options{
		Backend:    cfg.Location.Provider,
		Endpoint:   cfg.Location.Endpoint,
		Timeout:    cfg.Location.Timeout,
		MaximumAge: cfg.Location.MaximumAge,
		Latitude:   cfg.Location.Latitude,
		Longitude:  cfg.Location.Longitude,
		Logger:     logger.Named("location"),
	})
	if err != nil {
		closeStore(tokens, logger)
		return nil, err
	}
	logger.Info("Location provider ready", zap.String("backend", cfg.Location.Provider))

	host := ws.NewHost(ws.Config{
		Bridge: bridge.Config{
			Tokens:      tokens,
			Permissions: perms,
			Locator:     locator,
		},
		Prompter:     prompter,
		Exiter:       navigation.ExiterFunc(exit),
		AllowOrigin:  cfg.Surface.AllowOrigin,
		MessageRate:  cfg.Surface.MessageRate,
		MessageBurst: cfg.Surface.MessageBurst,
		Logger:       logger.Logger,
		Metrics:      metrics,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Surface.AllowOrigin)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(apihttp.Info{
		Service:    "pms-shell",
		Version:    Version,
		OriginURL:  cfg.Surface.OriginURL,
		BridgePath: cfg.Surface.BridgePath,
		Platform:   perms.Platform(),
	}, host, locator, metrics.Registry())
	handlers.Register(router)
	router.GET(cfg.Surface.BridgePath, host.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		host:    host,
		tokens:  tokens,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by http.Server.
	if err := s.host.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Content surface did not drain", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// Close releases the token store and flushes the logger.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.host.Shutdown(ctx); err != nil {
		s.logger.Warn("Bridge handlers still running at close", zap.Error(err))
	}

	var err error
	if c, ok := s.tokens.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			s.logger.Error("Failed to close token store", zap.Error(cerr))
			err = fmt.Errorf("failed to close token store: %w", cerr)
		}
	}

	_ = s.logger.Sync()
	return err
}

func closeStore(store token.Store, logger *logging.Logger) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close token store", zap.Error(err))
		}
	}
}
