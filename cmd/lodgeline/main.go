package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lodgeline/lodgeline/internal/app"
	"github.com/lodgeline/lodgeline/internal/customers"
	"github.com/lodgeline/lodgeline/internal/observability"
	"github.com/lodgeline/lodgeline/internal/overview"
	"github.com/lodgeline/lodgeline/internal/payments"
	"github.com/lodgeline/lodgeline/internal/platform/cache"
	"github.com/lodgeline/lodgeline/internal/platform/db"
	"github.com/lodgeline/lodgeline/internal/rbac"
	"github.com/lodgeline/lodgeline/internal/realtime"
	"github.com/lodgeline/lodgeline/internal/roles"
	"github.com/lodgeline/lodgeline/internal/shared"
	"github.com/lodgeline/lodgeline/internal/tickets"
	"github.com/lodgeline/lodgeline/internal/users"
	"github.com/lodgeline/lodgeline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "lodgeline_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	publisher := realtime.NewPublisher(redisClient, cfg.RealtimePrefix, logger)
	publisher.OnEmit(metrics.EventPublished)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, cfg.ReauthGracePeriod)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, publisher)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rolesService, publisher, jobClient, logger)

	rbacMiddleware := rbac.Middleware{Actors: usersService, Logger: logger}

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo, publisher, logger)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(paymentsRepo, publisher, logger)

	ticketsRepo := tickets.NewRepository(pool)
	ticketsService := tickets.NewService(ticketsRepo, publisher, jobClient, logger)

	overviewService := overview.NewService(overview.NewRepository(pool), logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware, sessionManager, csrfManager),
		RolesHandler:       roles.NewHandler(logger, rolesService, rbacMiddleware),
		CustomersHandler:   customers.NewHandler(logger, customersService, rbacMiddleware),
		OverviewHandler:    overview.NewHandler(logger, overviewService, rbacMiddleware),
		PaymentsHandler:    payments.NewHandler(logger, paymentsService, rbacMiddleware),
		TicketsHandler:     tickets.NewHandler(logger, ticketsService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
