package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/guildops/ticket-engine/internal/api/http"
	"github.com/guildops/ticket-engine/internal/api/http/handlers"
	"github.com/guildops/ticket-engine/internal/auth"
	"github.com/guildops/ticket-engine/internal/config"
	"github.com/guildops/ticket-engine/internal/events"
	"github.com/guildops/ticket-engine/internal/locking"
	"github.com/guildops/ticket-engine/internal/observability"
	"github.com/guildops/ticket-engine/internal/persistence"
	"github.com/guildops/ticket-engine/internal/repository"
	"github.com/guildops/ticket-engine/internal/service"
	"github.com/guildops/ticket-engine/internal/worker"
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

	var ticketRepo repository.TicketRepository
	var departmentRepo repository.DepartmentRepository
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewTicketRepository(pool)
		departmentRepo = repository.NewDepartmentRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		ticketRepo = store.Tickets()
		departmentRepo = store.Departments()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var locker locking.Locker
	if redis.Client != nil {
		locker = locking.NewRedisLocker(redis.Client)
	} else {
		locker = locking.NewMemoryLocker()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	departmentService := service.NewDepartmentService(departmentRepo)
	engine := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		DepartmentRepo: departmentRepo,
		Locker:         locker,
		Dispatcher:     dispatcher,
		Logger:         logger,
		LockTTL:        cfg.Engine.CreationLockTTL,
	})
	ratingService := service.NewRatingService(ticketRepo, departmentRepo, engine, dispatcher)
	statsService := service.NewStatsService(ticketRepo)

	// Channel provider and notifier are supplied by the surrounding
	// bot process; running standalone the events are only logged.
	notificationService := service.NewNotificationService(dispatcher, engine, departmentService, nil, nil, logger)
	notificationService.RegisterHandlers()

	sweeper := worker.NewAutoCloseWorker(worker.AutoCloseDependencies{
		DepartmentRepo: departmentRepo,
		TicketRepo:     ticketRepo,
		Engine:         engine,
		Metrics:        metrics,
		Logger:         logger,
		Schedule:       cfg.Sweeper.Schedule,
		RatingWindow:   cfg.Engine.RatingWindow,
	})
	if cfg.Sweeper.Enabled {
		if err := sweeper.Start(ctx); err != nil {
			logger.Fatal("failed to start sweeper", zap.Error(err))
		}
		defer sweeper.Stop()
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(engine, ratingService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: authMiddleware,
		AdminKeyHash:   cfg.Auth.AdminKeyHash,
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
