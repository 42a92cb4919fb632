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

	"github.com/lenana-drops/lenana/internal/app"
	"github.com/lenana-drops/lenana/internal/auth"
	"github.com/lenana-drops/lenana/internal/catalog"
	"github.com/lenana-drops/lenana/internal/clients"
	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/invoicing"
	"github.com/lenana-drops/lenana/internal/orders"
	"github.com/lenana-drops/lenana/internal/platform/cache"
	"github.com/lenana-drops/lenana/internal/platform/db"
	"github.com/lenana-drops/lenana/internal/production"
	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
	"github.com/lenana-drops/lenana/internal/stockin"
	"github.com/lenana-drops/lenana/internal/users"
)

func main() {
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

	auditLogger := shared.NewAuditLogger(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(usersRepo, tokenStore, authRepo)
	authenticator := auth.NewAuthenticator(logger, authService)

	clientsService := clients.NewService(clients.NewRepository(pool))
	catalogService := catalog.NewService(catalog.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger)
	productionService := production.NewService(production.NewRepository(pool), catalogService, auditLogger)
	stockinService := stockin.NewService(stockin.NewRepository(pool), auditLogger)
	ordersService := orders.NewService(orders.NewRepository(pool), auditLogger)
	invoicingService := invoicing.NewService(invoicing.NewRepository(pool), ordersService, auditLogger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     authenticator,
		RBACMiddleware:    rbac.Middleware{Logger: logger},
		AuthHandler:       auth.NewHandler(logger, authService),
		UsersHandler:      users.NewHandler(logger, usersService),
		ClientsHandler:    clients.NewHandler(logger, clientsService),
		CatalogHandler:    catalog.NewHandler(logger, catalogService),
		ProductionHandler: production.NewHandler(logger, productionService),
		InventoryHandler:  inventory.NewHandler(logger, inventoryService),
		StockInHandler:    stockin.NewHandler(logger, stockinService),
		OrdersHandler:     orders.NewHandler(logger, ordersService),
		InvoicingHandler:  invoicing.NewHandler(logger, invoicingService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
