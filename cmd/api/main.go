package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/bazzarnet/support-service/internal/api/http"
	"github.com/bazzarnet/support-service/internal/api/http/handlers"
	"github.com/bazzarnet/support-service/internal/auth"
	"github.com/bazzarnet/support-service/internal/config"
	"github.com/bazzarnet/support-service/internal/events"
	"github.com/bazzarnet/support-service/internal/mailer"
	"github.com/bazzarnet/support-service/internal/observability"
	"github.com/bazzarnet/support-service/internal/persistence"
	"github.com/bazzarnet/support-service/internal/repository"
	"github.com/bazzarnet/support-service/internal/service"
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

	var mailSender mailer.Sender
	if sg, err := mailer.NewSendGrid(cfg.Mail); err != nil {
		logger.Warn("sendgrid not configured; logging outbound mail instead", zap.Error(err))
		mailSender = mailer.NewLogSender(logger)
	} else {
		mailSender = sg
	}

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Mail)
	notificationService.RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Mail:       mailSender,
		Dispatcher: dispatcher,
		AdminEmail: cfg.Mail.AdminEmail,
		Logger:     logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Support:        handlers.NewSupportHandler(ticketService),
		AuthMiddleware: authMiddleware,
		SubmitLimiter:  httptransport.SubmitRateLimiter(redis.Client, config.SubmitLimit(), logger),
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
