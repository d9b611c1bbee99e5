package server

import (
	"log/slog"
	"net/http"

	actorHandlers "resonance-server/internal/actor/handlers"
	authHandlers "resonance-server/internal/auth/handlers"
	"resonance-server/internal/events"
	"resonance-server/internal/extraction"
	extractionHandlers "resonance-server/internal/extraction/handlers"
	"resonance-server/internal/inventory"
	inventoryHandlers "resonance-server/internal/inventory/handlers"
	"resonance-server/internal/lattice"
	latticeHandlers "resonance-server/internal/lattice/handlers"
	"resonance-server/internal/middleware"
	"resonance-server/internal/orb"
	orbHandlers "resonance-server/internal/orb/handlers"
	serverHandlers "resonance-server/internal/server/handlers"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/storagenode"
	storageHandlers "resonance-server/internal/storagenode/handlers"
	"resonance-server/internal/stream"
	"resonance-server/internal/transfer"
	transferHandlers "resonance-server/internal/transfer/handlers"
)

type Routes struct {
	db                *database.DB
	authMiddleware    *middleware.AuthMiddleware
	orbService        *orb.Service
	inventoryService  *inventory.Service
	extractionService *extraction.Service
	transferService   *transfer.Service
	storageService    *storagenode.Service
	latticeService    *lattice.Service
	bus               *events.Bus
	logger            *slog.Logger
}

func NewRoutes(
	db *database.DB,
	authMiddleware *middleware.AuthMiddleware,
	orbService *orb.Service,
	inventoryService *inventory.Service,
	extractionService *extraction.Service,
	transferService *transfer.Service,
	storageService *storagenode.Service,
	latticeService *lattice.Service,
	bus *events.Bus,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		db:                db,
		authMiddleware:    authMiddleware,
		orbService:        orbService,
		inventoryService:  inventoryService,
		extractionService: extractionService,
		transferService:   transferService,
		storageService:    storageService,
		latticeService:    latticeService,
		bus:               bus,
		logger:            logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	orbHandler := orbHandlers.NewOrbHandler(r.orbService)
	inventoryHandler := inventoryHandlers.NewInventoryHandler(r.inventoryService)
	extractionHandler := extractionHandlers.NewExtractionHandler(r.extractionService)
	transferHandler := transferHandlers.NewTransferHandler(r.transferService)
	storageHandler := storageHandlers.NewStorageHandler(r.storageService)
	latticeHandler := latticeHandlers.NewLatticeHandler(r.latticeService)
	streamHandler := stream.NewHandler(r.bus, r.logger)
	meHandler := actorHandlers.NewMeHandler()
	logoutHandler := authHandlers.NewLogoutHandler()

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return r.authMiddleware.Require(h)
	}
	requireAdmin := func(h http.HandlerFunc) http.Handler {
		return r.authMiddleware.RequireAdmin(h)
	}

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)

	// Protected endpoints (authenticated actors)
	mux.Handle("/api/extraction/begin", requireAuth(extractionHandler.BeginExtraction))
	mux.Handle("/api/extraction/extract", requireAuth(extractionHandler.ExtractPackets))
	mux.Handle("/api/extraction/end", requireAuth(extractionHandler.EndExtraction))
	mux.Handle("/api/packets/acknowledge", requireAuth(extractionHandler.AcknowledgePacket))
	mux.Handle("/api/inventory", r.authMiddleware.Require(inventoryHandler))
	mux.Handle("/api/transfers", requireAuth(transferHandler.Transfers))
	mux.Handle("/api/transfers/{id}/accept", requireAuth(transferHandler.AcceptTransfer))
	mux.Handle("/api/transfers/{id}/reject", requireAuth(transferHandler.RejectTransfer))
	mux.Handle("/api/storage", requireAuth(storageHandler.Storage))
	mux.Handle("/api/storage/{id}/deposit", requireAuth(storageHandler.DepositPackets))
	mux.Handle("/api/storage/{id}/withdraw", requireAuth(storageHandler.WithdrawPackets))
	mux.Handle("/api/lattice", requireAuth(latticeHandler.ListRelays))
	mux.Handle("/api/events/stream", requireAuth(streamHandler.Stream))
	mux.Handle("/api/actors/me", r.authMiddleware.Require(meHandler))
	mux.Handle("/auth/logout", r.authMiddleware.Require(logoutHandler))

	// /api/orbs reads are open to any actor; seeding is an admin action,
	// so the two methods sit behind different middleware.
	mux.Handle("GET /api/orbs", requireAuth(orbHandler.ListOrbs))
	mux.Handle("POST /api/orbs", requireAdmin(orbHandler.SeedOrbs))
	mux.Handle("/api/orbs/{id}/replenish", requireAdmin(orbHandler.ReplenishOrb))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health"},
		"protected_endpoints", []string{
			"/api/extraction", "/api/packets/acknowledge", "/api/inventory",
			"/api/transfers", "/api/storage", "/api/orbs", "/api/lattice",
			"/api/events/stream", "/api/actors/me", "/auth/logout",
		},
		"admin_endpoints", []string{"/api/orbs", "/api/orbs/replenish"},
	)

	return mux
}
