package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resonance-server/internal/actor"
	"resonance-server/internal/auth"
	"resonance-server/internal/events"
	"resonance-server/internal/extraction"
	"resonance-server/internal/inventory"
	"resonance-server/internal/lattice"
	"resonance-server/internal/middleware"
	"resonance-server/internal/orb"
	"resonance-server/internal/server"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/logger"
	"resonance-server/internal/shared/redis"
	"resonance-server/internal/storagenode"
	"resonance-server/internal/sweeper"
	"resonance-server/internal/transfer"
	"resonance-server/internal/world"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	cfg := config.GlobalConfig

	slog.Info("Starting resonance server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port)

	db, err := database.Connect()
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.Connect()
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	bus := events.NewBus(redisClient, slog.Default())

	actorRepo := actor.NewRepository(db, slog.Default())
	orbRepo := orb.NewRepository(db, slog.Default())
	inventoryRepo := inventory.NewRepository(db, slog.Default())
	extractionRepo := extraction.NewRepository(db, slog.Default())
	storageRepo := storagenode.NewRepository(db, slog.Default())
	latticeRepo := lattice.NewRepository(db, slog.Default())
	transferRepo := transfer.NewRepository(db, slog.Default())
	worldRepo := world.NewRepository(db, slog.Default())

	actorService := actor.NewService(actorRepo, slog.Default())
	authService := auth.NewService(actorService, slog.Default())
	orbService := orb.NewService(orbRepo, db, slog.Default())
	inventoryService := inventory.NewService(inventoryRepo, slog.Default())
	extractionService := extraction.NewService(extractionRepo, orbRepo, inventoryService, db, bus, slog.Default())
	placementValidator := storagenode.NewMinSeparationValidator(cfg.Game.StorageMinSeparation)
	storageService := storagenode.NewService(storageRepo, placementValidator, inventoryService, db, bus, slog.Default())
	latticeService := lattice.NewService(latticeRepo, db, slog.Default())
	transferService := transfer.NewService(transferRepo, inventoryService, storageService, actorService, latticeService, db, bus, slog.Default())
	worldService := world.NewService(worldRepo, latticeService, orbRepo, db, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worldService.Bootstrap(ctx); err != nil {
		slog.Error("Failed to bootstrap worlds", "error", err)
		os.Exit(1)
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)
	routes := server.NewRoutes(
		db,
		authMiddleware,
		orbService,
		inventoryService,
		extractionService,
		transferService,
		storageService,
		latticeService,
		bus,
		slog.Default(),
	)
	mux := routes.Setup()

	corsMiddleware := middleware.NewCORS()
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		Enabled:           cfg.RateLimit.Enabled,
		TrustProxy:        cfg.Server.Environment == "production",
	})
	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sw := sweeper.New(extractionService, transferService, latticeService, slog.Default())
	go sw.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}

	bus.Close()
	slog.Info("Server stopped")
}
