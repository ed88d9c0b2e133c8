package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/app"
	"github.com/datastudio/warehouse-admin/internal/auth"
	"github.com/datastudio/warehouse-admin/internal/delivery"
	"github.com/datastudio/warehouse-admin/internal/inventory"
	"github.com/datastudio/warehouse-admin/internal/observability"
	"github.com/datastudio/warehouse-admin/internal/platform/cache"
	"github.com/datastudio/warehouse-admin/internal/platform/pdf"
	"github.com/datastudio/warehouse-admin/internal/procurement"
	rbachttp "github.com/datastudio/warehouse-admin/internal/rbac/http"
	"github.com/datastudio/warehouse-admin/internal/reports"
	"github.com/datastudio/warehouse-admin/internal/roles"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/users"
	"github.com/datastudio/warehouse-admin/internal/view"
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
	slog.SetDefault(logger)

	redisClient, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	api := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIBaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.APITimeout,
	},
		apiclient.WithLogger(logger),
		apiclient.WithInvalidUserHook(metrics.ForcedLogout),
		apiclient.WithRequestObserver(metrics.APIRequest),
	)

	sessionManager := shared.NewSessionManager(redisClient, logger, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	responder := view.NewResponder(templates, csrfManager, logger)
	guards := rbachttp.Middleware{Logger: logger, Metrics: metrics}

	pdfClient := pdf.NewClient(cfg.GotenbergURL)
	if !pdfClient.Enabled() {
		logger.Info("GOTENBERG_URL not set, PDF export disabled")
	}

	authService := auth.NewService(auth.NewRepository(api), cfg.SignupDefaultRole)
	authHandler := auth.NewHandler(logger, authService, responder, sessionManager, csrfManager, cfg.AllowSignup)

	inventoryHandler := inventory.NewHandler(logger, inventory.NewService(inventory.NewRepository(api)), responder, guards)
	procurementHandler := procurement.NewHandler(logger, procurement.NewService(procurement.NewRepository(api)), responder, guards)
	deliveryHandler := delivery.NewHandler(logger, delivery.NewService(delivery.NewRepository(api)), responder, guards)
	reportsHandler := reports.NewHandler(logger, reports.NewService(reports.NewRepository(api), logger), responder, guards, pdfClient)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(api)), responder, guards)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(api)), responder, guards)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Responder:      responder,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guards:         guards,
		Metrics:        metrics,
		Redis:          redisClient,
		PDF:            pdfClient,

		AuthHandler:        authHandler,
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurementHandler,
		DeliveryHandler:    deliveryHandler,
		ReportsHandler:     reportsHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("api", cfg.APIBaseURL),
			slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
