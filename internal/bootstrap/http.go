package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/civicconnect/portal/config"
	httpx "github.com/civicconnect/portal/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler wires the portal router behind the standard middleware chain.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http: config and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	svc := cfg.Services

	router, err := httpx.NewRouter(httpx.RouterServices{
		Auth:       svc.Auth,
		Grievances: svc.Grievances,
		Drafts:     svc.Drafts,
		AuthMode:   string(appCfg.Auth.Mode),
		DemoRoles:  svc.DemoRoles,
		Cookies: httpx.CookieSettings{
			SessionName: appCfg.Auth.CookieName,
			Domain:      appCfg.HTTP.CookieDomain,
			Secure:      appCfg.HTTP.SecureCookies(),
		},
		Paths: httpx.AccessPaths{
			Login:        appCfg.Auth.LoginPath,
			Unauthorized: appCfg.Auth.UnauthorizedPath,
		},
		PositionOptions: appCfg.Location.PositionOptions(),
		MapCenter:       appCfg.Location.Center(),
		Readiness:       svc.Readiness,
		Metrics:         svc.Metrics,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	// Order: Recover -> Logging -> Compression -> Router
	h := router
	if appCfg.HTTP.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", appCfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: appCfg.HTTP.CompressionLevel, Logger: logger})(h)
	}
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)

	return h, nil
}

// StartHTTPServer builds the handler and starts serving in the background.
// Request contexts derive from ctx, so cancelling it closes open location
// channels. Listen failures are reported on errCh.
func StartHTTPServer(ctx context.Context, cfg *HTTPServerConfig, errCh chan<- error) (*http.Server, error) {
	handler, err := BuildHTTPHandler(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return startServer(ctx, logger, handler, cfg.Config.HTTP, errCh), nil
}

func startServer(
	ctx context.Context,
	logger *slog.Logger,
	handler http.Handler,
	cfg config.HTTPConfig,
	errCh chan<- error,
) *http.Server {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			if errCh != nil {
				errCh <- err
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server. Hijacked location
// channels are not tracked by the server; they end with the base context.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
