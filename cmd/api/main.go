package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/guild-tickets/internal/api/http"
	"github.com/spec-kit/guild-tickets/internal/api/http/handlers"
	"github.com/spec-kit/guild-tickets/internal/auth"
	"github.com/spec-kit/guild-tickets/internal/config"
	"github.com/spec-kit/guild-tickets/internal/events"
	"github.com/spec-kit/guild-tickets/internal/gateway"
	"github.com/spec-kit/guild-tickets/internal/observability"
	"github.com/spec-kit/guild-tickets/internal/permission"
	"github.com/spec-kit/guild-tickets/internal/persistence"
	"github.com/spec-kit/guild-tickets/internal/repository"
	"github.com/spec-kit/guild-tickets/internal/service"
	"github.com/spec-kit/guild-tickets/internal/txn"
	"github.com/spec-kit/guild-tickets/internal/worker"
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
	ticketRepo := repository.NewTicketRepository()
	roleRepo := repository.NewRoleRepository()
	guildRepo := repository.NewGuildRepository()
	auditRepo := repository.NewAuditRepository()

	permEngine := permission.NewEngine(permission.EngineDependencies{
		DB:             pool,
		RoleRepo:       roleRepo,
		GuildRepo:      guildRepo,
		Cache:          permission.NewRedisMaskCache(redis.Client),
		PlatformAdmins: cfg.Platform.AdminIDs,
		Logger:         logger,
	})

	txRunner := txn.NewRunner(pool, logger)
	dispatcher := events.NewInMemoryDispatcher()
	gatewayClient := gateway.NewClient(cfg.Gateway, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Tx:          txRunner,
		DB:          pool,
		TicketRepo:  ticketRepo,
		AuditRepo:   auditRepo,
		Permissions: permEngine,
		Dispatcher:  dispatcher,
		Gateway:     gatewayClient,
		Logger:      logger,
	})
	roleService := service.NewRoleService(service.RoleDependencies{
		Tx:          txRunner,
		DB:          pool,
		RoleRepo:    roleRepo,
		AuditRepo:   auditRepo,
		Permissions: permEngine,
	})
	guildService := service.NewGuildService(service.GuildDependencies{
		Tx:          txRunner,
		DB:          pool,
		GuildRepo:   guildRepo,
		RoleRepo:    roleRepo,
		AuditRepo:   auditRepo,
		Permissions: permEngine,
		AuthConfig:  cfg.Auth,
	})
	auditService := service.NewAuditService(service.AuditDependencies{
		DB:          pool,
		AuditRepo:   auditRepo,
		TicketRepo:  ticketRepo,
		Permissions: permEngine,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	analyticsService := service.NewAnalyticsService(dispatcher, redis.Client, logger)
	worker.StartSubscribers(notificationService, analyticsService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, func(c *fiber.Ctx, guildID, apiKey string) error {
		return guildService.VerifyAPIKey(c.UserContext(), guildID, apiKey)
	})

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Roles:          handlers.NewRolesHandler(roleService),
		Guilds:         handlers.NewGuildsHandler(guildService),
		Audit:          handlers.NewAuditHandler(auditService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.App.Addr()))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
