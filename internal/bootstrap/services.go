package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicconnect/portal/config"
	"github.com/civicconnect/portal/internal/data"
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/model"
	httpx "github.com/civicconnect/portal/internal/http"
	"github.com/civicconnect/portal/internal/observability/notify/pagerduty"
	"github.com/civicconnect/portal/internal/observability/notify/slack"
	"github.com/civicconnect/portal/internal/observability/statsd"
	"github.com/civicconnect/portal/internal/ports"
	"github.com/civicconnect/portal/internal/service"
	"github.com/civicconnect/portal/internal/service/escalation"
	"github.com/redis/go-redis/v9"
)

// ServiceDeps are the connected infrastructure the portal services run on.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // nil with the memory session store
	Logger      *slog.Logger
}

// ServiceContainer holds the wired portal services.
type ServiceContainer struct {
	Auth        *service.AuthService
	DemoRoles   []domainauth.Role
	Drafts      *service.DraftService
	Grievances  *service.GrievanceService
	Escalations *escalation.Service
	Reaper      *service.ReaperService // nil when every store expires records itself
	Readiness   map[string]httpx.ReadinessCheck
	Metrics     statsd.Sink

	metricsClient *statsd.Client
}

// Close releases resources owned by the container.
func (c *ServiceContainer) Close() error {
	if c == nil || c.metricsClient == nil {
		return nil
	}
	return c.metricsClient.Close()
}

// NewServices wires the portal services over deps.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return nil, errors.New("services: config and database are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	stores, err := BuildStores(StoreConfig{
		Kind:        cfg.Auth.SessionStore,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	auth, err := BuildAuthService(ctx, AuthConfig{
		Auth:     cfg.Auth,
		Sessions: stores.Sessions,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	container := &ServiceContainer{
		Auth:      auth.Service,
		DemoRoles: auth.DemoRoles,
		Readiness: readinessChecks(deps.DB, deps.RedisClient),
	}

	if cfg.Observability.Metrics.IsEnabled() {
		client, mErr := statsd.NewClient(ctx, statsd.Config{
			Enabled: true,
			Address: cfg.Observability.Metrics.StatsdAddress,
			Prefix:  cfg.Observability.Metrics.Prefix,
			Logger:  logger,
			GlobalTags: map[string]string{
				"auth_mode": string(cfg.Auth.Mode),
			},
		})
		if mErr != nil {
			logger.Error("failed to initialise statsd client", "error", mErr)
		} else {
			container.metricsClient = client
			container.Metrics = client
		}
	}

	if len(stores.Sweep) > 0 {
		reaper, rErr := service.NewReaperService(service.ReaperServiceOptions{
			Targets: stores.Sweep,
			Config:  cfg.Reaper,
			Logger:  logger,
			Metrics: container.Metrics,
		})
		if rErr != nil {
			return nil, fmt.Errorf("build reaper: %w", rErr)
		}
		container.Reaper = reaper
	}

	container.Escalations = buildEscalations(logger, cfg.Observability.Notifications)

	container.Drafts = service.NewDraftService(service.DraftServiceOptions{
		Store:  stores.Drafts,
		TTL:    cfg.Auth.DraftTTL,
		Logger: logger,
	})

	var notifier ports.GrievanceNotifier
	if container.Escalations.Enabled() {
		notifier = container.Escalations
	}
	container.Grievances = service.NewGrievanceService(service.GrievanceServiceOptions{
		Repo:        data.NewGrievanceRepo(deps.DB),
		Drafts:      container.Drafts,
		Escalations: notifier,
		Logger:      logger,
	})

	return container, nil
}

func readinessChecks(db *sql.DB, rdb redis.UniversalClient) map[string]httpx.ReadinessCheck {
	checks := map[string]httpx.ReadinessCheck{
		"database": db.PingContext,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}

func buildEscalations(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *escalation.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return escalation.NewService(escalation.Options{Logger: baseLogger})
	}

	sinks := make([]escalation.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
			PortalURL:  cfg.Slack.PortalURL,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, escalation.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, escalation.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return escalation.NewService(escalation.Options{
		Logger:      baseLogger,
		Sinks:       sinks,
		MinPriority: model.GrievancePriority(cfg.MinPriority),
		Timeout:     cfg.Timeout,
	})
}

// ServiceOrchestrationConfig contains what RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown serves HTTP until SIGINT, SIGTERM or a listen
// failure, then drains the server.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("orchestration: config and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Services.Reaper != nil {
		go func() {
			if err := cfg.Services.Reaper.Run(serveCtx); err != nil {
				logger.Error("reaper stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	server, err := StartHTTPServer(serveCtx, &HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	}, errCh)
	if err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	return waitForShutdown(shutdownConfig{
		ctx:        ctx,
		cancel:     cancel,
		errCh:      errCh,
		httpServer: server,
		timeout:    cfg.Config.HTTP.ShutdownTimeout,
		logger:     logger,
	})
}

type shutdownConfig struct {
	ctx        context.Context
	cancel     context.CancelFunc
	errCh      <-chan error
	httpServer *http.Server
	timeout    time.Duration
	logger     *slog.Logger
}

func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		return gracefulStop(cfg)
	case <-cfg.ctx.Done():
		cfg.logger.Info("context cancelled, shutting down services...")
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains in-flight requests, then cancels the serving context
// so open location channels close.
func gracefulStop(cfg shutdownConfig) error {
	defer cfg.cancel()
	return ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(cfg.ctx),
		Server:  cfg.httpServer,
		Timeout: cfg.timeout,
		Logger:  cfg.logger,
	})
}
