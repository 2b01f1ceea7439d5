package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/chemconfig-service/internal/api/http"
	"github.com/spec-kit/chemconfig-service/internal/api/http/handlers"
	"github.com/spec-kit/chemconfig-service/internal/audit"
	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/config"
	"github.com/spec-kit/chemconfig-service/internal/events"
	"github.com/spec-kit/chemconfig-service/internal/observability"
	"github.com/spec-kit/chemconfig-service/internal/persistence"
	"github.com/spec-kit/chemconfig-service/internal/repository"
	"github.com/spec-kit/chemconfig-service/internal/service"
	"github.com/spec-kit/chemconfig-service/internal/storage"
	"github.com/spec-kit/chemconfig-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)

	if err := service.EnsureAdminUser(ctx, *cfg, userRepo, logger); err != nil {
		logger.Fatal("failed to seed admin account", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	recorder := audit.NewRecorder(auditRepo, logger).WithMetrics(metrics)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger)
	worker.StartNotificationWorker(notificationService)

	store, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL, cfg.Upload.MaxSizeMB)
	if err != nil {
		logger.Fatal("failed to init upload storage", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, userRepo, recorder)
	userService := service.NewUserService(userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		UserRepo:        userRepo,
		Recorder:        recorder,
		Dispatcher:      dispatcher,
		DeleteAdminOnly: cfg.Ticket.DeleteAdminOnly,
	})
	auditService := service.NewAuditQueryService(recorder)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, userService, cfg.App.Version, cfg.App.Env),
		Tickets:        handlers.NewTicketsHandler(ticketService, store),
		AuditLogs:      handlers.NewAuditLogsHandler(auditService),
		AuthMiddleware: authMiddleware,
		UploadDir:      store.Dir(),
		UploadBaseURL:  cfg.Upload.BaseURL,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
