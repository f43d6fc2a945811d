package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/bavindu122/PillPath-Backend-sub001/internal/api/http"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/api/http/handlers"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/auth"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/config"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/events"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/federation"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/observability"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/persistence"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/repository"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/revocation"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/service"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/worker"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clk := clock.New()
	metrics := observability.NewMetrics()

	codec, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.Issuer, clk)
	if err != nil {
		logger.Fatal("failed to build token codec", zap.Error(err))
	}

	store, err := newRevocationStore(cfg, pg, redis, clk, logger)
	if err != nil {
		logger.Fatal("failed to build revocation store", zap.Error(err))
	}
	if cleaner, ok := store.(revocation.Cleaner); ok {
		go revocation.StartCleanupTicker(ctx, cleaner, cfg.Auth.RevocationSweepInterval(), clk, logger)
	}
	logger.Info("revocation store ready", zap.String("backend", cfg.Auth.RevocationBackend))

	dispatcher := events.NewInMemoryDispatcher(logger)
	registry := ws.NewWatchRegistry()
	hub := ws.NewHub(registry, logger)
	worker.StartPresenceWorker(dispatcher, registry)
	worker.StartAuditWorker(dispatcher, logger)

	sessionDeps := service.SessionDependencies{
		Codec:       codec,
		Revocations: store,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Logger:      logger,
	}
	if len(cfg.Federation.GoogleClientIDs) > 0 && pg.Enabled() {
		keys := federation.NewKeySource(
			cfg.Federation.GoogleJWKSURL,
			&http.Client{Timeout: cfg.Federation.VerifyTimeout()},
			cfg.Federation.KeyCacheTTL(),
			cfg.Federation.VerifyTimeout(),
			logger,
		)
		sessionDeps.Verifier = federation.NewGoogleVerifier(keys, cfg.Federation.GoogleClientIDs, cfg.Federation.VerifyTimeout(), clk)
		sessionDeps.Linker = repository.NewOAuthAccountRepository(pg.PoolHandle())
	} else {
		logger.Warn("google sign-in disabled; requires GOOGLE_CLIENT_IDS and POSTGRES_DSN")
	}
	sessions := service.NewSessionService(sessionDeps)

	authenticator := auth.NewRequestAuthenticator(codec, store, cfg.Auth.LegacyTokensEnabled, logger)
	authMiddleware := auth.NewAuthMiddleware(authenticator, metrics, logger)

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Hub:        hub,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		ReadLimit:  int64(cfg.WebSocket.ReadLimitBytes),
		SendBuffer: cfg.WebSocket.SendBuffer,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
		"postgres": pg,
		"redis":    redis,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Sessions:       handlers.NewSessionHandler(sessions),
		Presence:       handlers.NewPresenceHandler(registry, hub),
		AuthMiddleware: authMiddleware,
		WebSocket:      websocket.New(wsHandler.Serve),
		WebSocketPath:  cfg.WebSocket.Path,
		Logger:         logger,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newRevocationStore(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis, clk clock.Clock, logger *zap.Logger) (revocation.Store, error) {
	switch cfg.Auth.RevocationBackend {
	case config.RevocationBackendRedis:
		if !redis.Enabled() {
			return nil, fmt.Errorf("revocation backend %q: %w", cfg.Auth.RevocationBackend, persistence.ErrNotConfigured)
		}
		return revocation.NewRedisStore(redis.Client, clk), nil
	case config.RevocationBackendPostgres:
		if !pg.Enabled() {
			return nil, fmt.Errorf("revocation backend %q: %w", cfg.Auth.RevocationBackend, persistence.ErrNotConfigured)
		}
		return repository.NewRevokedTokenRepository(pg.PoolHandle(), clk, logger), nil
	default:
		return revocation.NewMemoryStore(clk), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
