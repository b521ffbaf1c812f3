package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/inferq/config"
	httpx "github.com/target/inferq/internal/http"
	"golang.org/x/net/netutil"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// ErrCh receives a serve failure after start-up. Optional.
	ErrCh chan<- error
}

// StartHTTPServer binds the listener, then serves in the background.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:   logger,
		Services: routerServices(cfg, logger),
		HTTP:     appCfg.HTTP,
	})

	return startServer(serverParams{
		Logger:         logger,
		Handler:        handler,
		Addr:           appCfg.HTTP.Addr,
		MaxConnections: appCfg.HTTP.MaxConnections,
		ErrCh:          cfg.ErrCh,
	})
}

func routerServices(cfg *HTTPServerConfig, logger *slog.Logger) httpx.RouterServices {
	svcs := cfg.Services
	rs := httpx.RouterServices{
		Auth:          svcs.Identity,
		Worker:        svcs.Identity,
		Enqueue:       svcs.Enqueue,
		Pipeline:      svcs.Pipeline,
		Embeddings:    svcs.Embeddings,
		Jobs:          svcs.Jobs,
		Conversations: svcs.Conversations,
		Readiness:     readinessChecks(cfg.DB, cfg.RedisClient),
		Logger:        logger,
	}
	if prom := svcs.Observability.Prometheus; prom != nil {
		rs.Metrics = prom.Handler()
	}
	return rs
}

func readinessChecks(db *sql.DB, redisClient redis.UniversalClient) []httpx.ReadinessCheck {
	var checks []httpx.ReadinessCheck
	if db != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}
	if redisClient != nil {
		checks = append(checks, httpx.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	services := cfg.Services
	services.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	if cfg.HTTP.CompressionEnabled {
		cfg.Logger.Info("HTTP compression enabled", "level", cfg.HTTP.CompressionLevel)
		services.Compression = true
		services.CompressionLvl = cfg.HTTP.CompressionLevel
	}
	return httpx.NewRouter(services)
}

type serverParams struct {
	Logger         *slog.Logger
	Handler        http.Handler
	Addr           string
	MaxConnections int
	ErrCh          chan<- error
}

func startServer(p serverParams) (*http.Server, error) {
	addr := p.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           p.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous worker invocations run up to the inference timeout.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if p.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, p.MaxConnections)
	}

	go func() {
		p.Logger.Info("starting HTTP server", "addr", ln.Addr().String(), "max_connections", p.MaxConnections)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			p.Logger.Error("HTTP server failed", "error", serveErr)
			if p.ErrCh != nil {
				select {
				case p.ErrCh <- fmt.Errorf("http server: %w", serveErr):
				default:
				}
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
