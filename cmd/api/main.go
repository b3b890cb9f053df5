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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/sla-engine/internal/adapters/primary/http"
	mw "github.com/lorrc/sla-engine/internal/adapters/primary/http/middleware"
	"github.com/lorrc/sla-engine/internal/adapters/primary/websocket"
	"github.com/lorrc/sla-engine/internal/adapters/secondary/httpexec"
	"github.com/lorrc/sla-engine/internal/adapters/secondary/notification"
	"github.com/lorrc/sla-engine/internal/adapters/secondary/postgres"
	"github.com/lorrc/sla-engine/internal/adapters/secondary/ticketing"
	"github.com/lorrc/sla-engine/internal/auth"
	"github.com/lorrc/sla-engine/internal/config"
	"github.com/lorrc/sla-engine/internal/core/services"
	"github.com/lorrc/sla-engine/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.ServiceTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 5. Initialize Rate Limiter
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	policyRepo := postgres.NewPolicyRepository(pool)
	calendarRepo := postgres.NewCalendarRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)

	// Outbound clients (Secondary Adapters)
	ticketGateway := ticketing.NewClient(cfg.Services.TicketServiceURL, cfg.Services.RequestTimeout, tokenManager, logger)
	notifier := notification.NewClient(cfg.Services.NotificationServiceURL, cfg.Services.RequestTimeout, tokenManager, logger)
	groups := notification.NewGroupClient(cfg.Services.GroupServiceURL, cfg.Services.RequestTimeout, tokenManager, logger)
	executor := httpexec.NewExecutor(cfg.Services.RequestTimeout, logger)

	// Services (Core)
	scheduler := services.NewSchedulerService(jobRepo, executor, logger, services.SchedulerConfig{
		SweepInterval: cfg.Scheduler.SweepInterval,
		ArmWindow:     cfg.Scheduler.ArmWindow,
	})
	matcher := services.NewSlaMatcher(policyRepo)
	slaService := services.NewEscalationService(
		matcher, calendarRepo, ticketGateway, notifier, groups,
		scheduler, hub, tokenManager,
		services.CallbackConfig{URL: cfg.Scheduler.CallbackBaseURL + "/api/v1/sla/check"},
		logger,
	)
	policyService := services.NewPolicyAdminService(policyRepo, calendarRepo, logger)

	// Handlers (Primary Adapters)
	slaHandler := httpAdapter.NewSlaHandler(slaService, errorHandler, logger)
	schedulerHandler := httpAdapter.NewSchedulerHandler(scheduler, errorHandler, logger)
	policyHandler := httpAdapter.NewPolicyHandler(policyService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// Start the sweep loop; the first sweep re-arms jobs left over from a
	// previous process.
	scheduler.Start()

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	corsOrigins := cfg.WebSocket.AllowedOrigins
	if cfg.IsDevelopment() && len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket event stream (authentication is handled inside the handler)
		r.Get("/events/stream", wsHandler.ServeHTTP)

		// Service-to-service routes
		r.Group(func(r chi.Router) {
			r.Use(mw.ServiceAuth(tokenManager))
			r.Route("/sla", slaHandler.RegisterRoutes)
			r.Route("/jobs", schedulerHandler.RegisterRoutes)
			policyHandler.RegisterRoutes(r)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	scheduler.Stop()

	logger.Info("server shutdown complete")
}
