package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"shopfloor/internal/config"
	"shopfloor/internal/database"
	"shopfloor/internal/handler"
	"shopfloor/internal/model"
	"shopfloor/internal/mw"
	"shopfloor/internal/notify"
	"shopfloor/internal/odata"
	"shopfloor/internal/service"
	"shopfloor/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	loc := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Services
	sessionSvc := service.NewSessionService(db)
	if n, err := sessionSvc.CloseAll(ctx, time.Now()); err != nil {
		slog.Error("failed to close stale sessions", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Info("closed sessions left open by previous run", "count", n)
	}

	sapClient := odata.NewClient(cfg.SAPServiceURL, cfg.SAPFormat, cfg.SAPTimeout)
	if !sapClient.Available() {
		slog.Warn("no SAP service configured, logins and reads will fail")
	}

	registry := service.NewSessionRegistry()
	hub := notify.NewHub()
	authSvc := service.NewAuthService(sapClient, sessionSvc, registry, cfg.JWTSecret, cfg.JWTTTL)
	orderSvc := service.NewOrderService(sapClient, loc)
	dashSvc := service.NewDashboardService(sapClient, hub, loc, cfg.DashboardConcurrency)

	// Worker
	reaper := worker.NewSessionReaper(sessionSvc, registry, hub, cfg.SessionTTL, cfg.ReaperInterval)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/login", handler.LoginHandler(authSvc))
	r.Get("/api/ws", handler.NotificationsHandler(cfg.JWTSecret, registry, hub))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret, registry))

		r.Post("/api/logout", handler.LogoutHandler(authSvc, hub))
		r.Get("/api/dashboard", handler.DashboardHandler(dashSvc, loc))

		r.Get("/api/planned-orders", handler.ListOrdersHandler(orderSvc, model.KindPlanned, loc))
		r.Post("/api/planned-orders/refresh", handler.RefreshOrdersHandler(orderSvc, model.KindPlanned, loc))
		r.Get("/api/production-orders", handler.ListOrdersHandler(orderSvc, model.KindProduction, loc))
		r.Post("/api/production-orders/refresh", handler.RefreshOrdersHandler(orderSvc, model.KindProduction, loc))

		r.Get("/api/user/sessions", handler.ListSessionsHandler(sessionSvc))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.SAPTimeout + 10*time.Second, // outlast the SAP client
	}

	go reaper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "sap", cfg.SAPServiceURL, "timezone", loc.String())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if _, err := sessionSvc.CloseAll(ctxShut, time.Now()); err != nil {
		slog.Error("failed to close sessions", "error", err)
	}

	slog.Info("server stopped")
}
