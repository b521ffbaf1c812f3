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

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/config"
	"github.com/target/inferq/internal/core"
	"github.com/target/inferq/internal/data"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/notify/pagerduty"
	"github.com/target/inferq/internal/observability/notify/slack"
	"github.com/target/inferq/internal/observability/statsd"
	"github.com/target/inferq/internal/service"
	"github.com/target/inferq/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs              *service.JobService
	Enqueue           *service.EnqueueService
	Pipeline          *service.WorkerPipeline
	Embeddings        *service.EmbeddingService
	EmbeddingExecutor *service.EmbeddingExecutor
	Identity          *service.IdentityService
	Conversations     *service.ConversationService
	Observability     ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// Metrics fans out to every configured sink; nil when none is configured.
	Metrics         statsd.Sink
	Statsd          *statsd.Client
	Prometheus      *metrics.PrometheusSink
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs       *data.InferenceJobRepo
	Messages   *data.MessageRepo
	Embeddings *data.EmbeddingRepo
	// Cache is nil when Redis is disabled.
	Cache core.CacheRepository
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	prefix := cfg.Metrics.Prefix
	if prefix == "" {
		prefix = "inferq"
	}

	var sinks []statsd.Sink
	var statsdClient *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			statsdClient = client
			sinks = append(sinks, client)
		}
	}

	var prom *metrics.PrometheusSink
	if cfg.Metrics.PrometheusEnabled {
		prom = metrics.NewPrometheusSink(prefix, obsLogger)
		sinks = append(sinks, prom)
	}

	return ObservabilityContainer{
		Metrics:         metrics.NewFanOut(sinks...),
		Statsd:          statsdClient,
		Prometheus:      prom,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, cfg *config.AppConfig, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		Jobs:       data.NewInferenceJobRepo(db, data.RepoConfig{Logger: logger}),
		Messages:   data.NewMessageRepo(db),
		Embeddings: data.NewEmbeddingRepo(db, nil),
	}
	if redisClient != nil {
		repos.Cache = data.NewRedisCacheRepo(redisClient, cfg.Redis.KeyPrefix)
	}
	return repos
}

func newJobService(repos *serviceRepositories, cfg *config.AppConfig, obs ObservabilityContainer, logger *slog.Logger) (*service.JobService, error) {
	return service.NewJobService(service.JobServiceOptions{
		Repo:            repos.Jobs,
		DefaultLease:    cfg.Worker.JobLease,
		Logger:          logger,
		Metrics:         obs.Metrics,
		FailureNotifier: obs.FailureNotifier,
	})
}

func newEmbeddingServices(
	ctx context.Context,
	repos *serviceRepositories,
	cfg *config.AppConfig,
	obs ObservabilityContainer,
	logger *slog.Logger,
) (*service.EmbeddingService, *service.EmbeddingExecutor, error) {
	engine, err := BuildEmbeddingEngine(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}

	embeddings, err := service.NewEmbeddingService(service.EmbeddingServiceOptions{
		Messages:   repos.Messages,
		Embeddings: repos.Embeddings,
		Engine:     engine,
		Cache:      repos.Cache,
		Config: service.EmbeddingServiceConfig{
			Timeout:   cfg.Embedding.Timeout,
			DedupeTTL: cfg.Embedding.DedupeTTL,
		},
		Logger:  logger,
		Metrics: obs.Metrics,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding service: %w", err)
	}

	executor, err := service.NewEmbeddingExecutor(service.EmbeddingExecutorOptions{
		Embedder:    embeddings,
		Concurrency: cfg.Embedding.Concurrency,
		Logger:      logger,
		Metrics:     obs.Metrics,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding executor: %w", err)
	}

	return embeddings, executor, nil
}

type pipelineDeps struct {
	jobs     *service.JobService
	repos    *serviceRepositories
	executor *service.EmbeddingExecutor
	cfg      *config.AppConfig
	obs      ObservabilityContainer
	logger   *slog.Logger
}

func newWorkerPipeline(ctx context.Context, d pipelineDeps) (*service.WorkerPipeline, error) {
	engine, err := BuildInferenceEngine(ctx, d.cfg.Inference)
	if err != nil {
		return nil, err
	}

	var runLock *service.RunLockConfig
	if d.cfg.Worker.RunLock {
		if d.repos.Cache == nil {
			d.logger.WarnContext(ctx, "worker run lock requested but redis is disabled; running without it")
		} else {
			runLock = &service.RunLockConfig{
				Cache: d.repos.Cache,
				Slots: d.cfg.Worker.Concurrency,
				TTL:   d.cfg.Worker.RunLockTTL,
			}
		}
	}

	pipeline, err := service.NewWorkerPipeline(service.WorkerPipelineOptions{
		Jobs:       d.jobs,
		Engine:     engine,
		Embeddings: d.executor,
		Config: service.WorkerConfig{
			BatchSize:        d.cfg.Worker.BatchSize,
			Concurrency:      d.cfg.Worker.Concurrency,
			InferenceTimeout: d.cfg.Worker.InferenceTimeout,
		},
		RunLock: runLock,
		Logger:  d.logger,
		Metrics: d.obs.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create worker pipeline: %w", err)
	}

	d.logger.InfoContext(ctx, "worker pipeline configured",
		"engine", engine.Name(),
		"batch_size", d.cfg.Worker.BatchSize,
		"concurrency", d.cfg.Worker.Concurrency,
		"run_lock", runLock != nil,
	)
	return pipeline, nil
}

// NewServices initializes all application services.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, cfg, logger)

	jobs, err := newJobService(repos, cfg, obs, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	enqueue, err := service.NewEnqueueService(service.EnqueueServiceOptions{
		Repo:       repos.Jobs,
		MaxRetries: cfg.Worker.MaxRetries,
		Logger:     logger,
		Metrics:    obs.Metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create enqueue service: %w", err)
	}

	embeddings, executor, err := newEmbeddingServices(ctx, repos, cfg, obs, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	pipeline, err := newWorkerPipeline(ctx, pipelineDeps{
		jobs:     jobs,
		repos:    repos,
		executor: executor,
		cfg:      cfg,
		obs:      obs,
		logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	identity, err := BuildIdentityService(ctx, AuthConfig{Auth: cfg.Auth, Logger: logger})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create identity service: %w", err)
	}

	conversations, err := service.NewConversationService(repos.Messages)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create conversation service: %w", err)
	}

	return ServiceContainer{
		Jobs:              jobs,
		Enqueue:           enqueue,
		Pipeline:          pipeline,
		Embeddings:        embeddings,
		EmbeddingExecutor: executor,
		Identity:          identity,
		Conversations:     conversations,
		Observability:     obs,
	}, nil
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   cfg.Slack.WebhookURL,
			Channel:      cfg.Slack.Channel,
			Username:     cfg.Slack.Username,
			Timeout:      cfg.Timeout,
			RetryLimit:   cfg.RetryLimit,
			JobURLPrefix: cfg.Slack.JobURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
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
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:          baseLogger,
		Sinks:           sinks,
		DeliveryTimeout: cfg.Timeout * time.Duration(cfg.RetryLimit+1),
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) (*http.Server, error) {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil, nil //nolint:nilnil // no server when the http mode is disabled
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:      deps.cfg.Config,
		Services:    deps.cfg.Services,
		DB:          deps.cfg.DB,
		RedisClient: deps.cfg.RedisClient,
		Logger:      deps.logger,
		ErrCh:       deps.errCh,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newTriggerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeTrigger,
		name: "worker trigger",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil || deps.cfg.Config == nil {
				return nil
			}
			appCfg := deps.cfg.Config
			return RunTrigger(ctx, TriggerConfig{
				Pipeline:    deps.cfg.Services.Pipeline,
				Jobs:        deps.cfg.Services.Jobs,
				Config:      appCfg.Trigger,
				Concurrency: appCfg.Worker.Concurrency,
				Logger:      deps.logger,
				Metrics:     deps.cfg.Services.Observability.Metrics,
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var reaperCfg config.ReaperConfig
			if deps.cfg.Config != nil {
				reaperCfg = deps.cfg.Config.Reaper
			}
			return RunReaper(ctx, ReaperConfig{
				DB:      deps.cfg.DB,
				Logger:  deps.logger,
				Config:  reaperCfg,
				Metrics: deps.cfg.Services.Observability.Metrics,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newTriggerBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) (ServiceStartupResult, error) {
	server, err := startHTTPServerIfEnabled(deps)
	if err != nil {
		return ServiceStartupResult{}, err
	}
	return ServiceStartupResult{
		HTTPServer: server,
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}, nil
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result, err := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})
	if err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		services:    cfg.Services,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	services    ServiceContainer
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains the HTTP server, wakes trigger listeners, waits for
// background services, then lets in-flight embeddings finish. The service
// context is already canceled here, so deadlines derive from Background.
func gracefulStop(cfg shutdownConfig) error {
	var errs []error

	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		})
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.services.Jobs != nil {
		cfg.services.Jobs.StopNotifications()
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.services.EmbeddingExecutor != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		if err := cfg.services.EmbeddingExecutor.Shutdown(drainCtx); err != nil {
			cfg.logger.Warn("embedding executor did not drain", "error", err,
				"pending", cfg.services.EmbeddingExecutor.Pending())
		}
		cancel()
	}

	if c := cfg.services.Observability.Statsd; c != nil {
		if err := c.Close(); err != nil {
			cfg.logger.Warn("close statsd client", "error", err)
		}
	}

	return errors.Join(errs...)
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
