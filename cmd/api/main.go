package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/peoplehub/hr-identity/internal/api/http"
	"github.com/peoplehub/hr-identity/internal/api/http/handlers"
	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/config"
	"github.com/peoplehub/hr-identity/internal/events"
	"github.com/peoplehub/hr-identity/internal/observability"
	"github.com/peoplehub/hr-identity/internal/persistence"
	"github.com/peoplehub/hr-identity/internal/repository"
	"github.com/peoplehub/hr-identity/internal/repository/memory"
	"github.com/peoplehub/hr-identity/internal/service"
	"github.com/peoplehub/hr-identity/internal/telemetry"
	"github.com/peoplehub/hr-identity/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.Setup(ctx, cfg.App.Name, cfg.Telemetry, logger)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewStore(pg.SQLDB())
	} else {
		if cfg.App.Env != "development" {
			logger.Fatal("POSTGRES_DSN is required outside development")
		}
		logger.Warn("using in-memory identity store; data is lost on restart")
		store = memory.NewStore()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	security := observability.NewSecurityLogger(logger)
	dispatcher := events.NewInMemoryDispatcher()
	random := auth.NewGenerator(nil)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	cipher, err := auth.NewResetCipher(cfg.Auth.ResetTokenKey, nil)
	if err != nil {
		logger.Fatal("failed to init reset cipher", zap.Error(err))
	}

	notificationService := service.NewNotificationService(dispatcher, service.NewLogMailer(logger), logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	sessionService := service.NewSessionService(store, random, service.SessionConfig{
		TTL:            cfg.Auth.RefreshTokenTTL(),
		StorageTimeout: cfg.Auth.StorageTimeout(),
		Rotation:       cfg.Auth.RefreshRotation,
	}, dispatcher, security, logger)

	resetService := service.NewPasswordResetService(service.PasswordResetConfig{
		BcryptCost:     cfg.Auth.BcryptCost,
		StorageTimeout: cfg.Auth.StorageTimeout(),
		ResponseFloor:  cfg.Auth.ResetResponseFloor(),
	}, service.PasswordResetDependencies{
		Store:      store,
		Sessions:   sessionService,
		Cipher:     cipher,
		Random:     random,
		Throttle:   persistence.NewResetThrottle(redis, cfg.Auth.ResetThrottleLimit, cfg.Auth.ResetThrottleWindowDuration()),
		Dispatcher: dispatcher,
		Security:   security,
		Logger:     logger,
	})

	authService := service.NewAuthService(service.AuthDependencies{
		Store:          store,
		Tokens:         tokens,
		Sessions:       sessionService,
		Security:       security,
		Logger:         logger,
		StorageTimeout: cfg.Auth.StorageTimeout(),
		BcryptCost:     cfg.Auth.BcryptCost,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:          handlers.NewAuthHandler(authService),
		Password:      handlers.NewPasswordHandler(resetService),
		Sessions:      handlers.NewSessionsHandler(sessionService),
		Gate:          auth.NewGate(tokens, security),
		AuthRateLimit: cfg.App.AuthRateLimit,
	})

	go worker.StartCleanup(ctx, cfg.Auth.CleanupInterval(), worker.NewCleanup(sessionService, store.Resets(), logger))

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
