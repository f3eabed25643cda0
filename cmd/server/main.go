package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pwendlys/viaja-mais/internal/cache"
	"github.com/pwendlys/viaja-mais/internal/config"
	"github.com/pwendlys/viaja-mais/internal/database"
	"github.com/pwendlys/viaja-mais/internal/functions"
	"github.com/pwendlys/viaja-mais/internal/handler"
	"github.com/pwendlys/viaja-mais/internal/localstore"
	"github.com/pwendlys/viaja-mais/internal/middleware"
	"github.com/pwendlys/viaja-mais/internal/offline"
	"github.com/pwendlys/viaja-mais/internal/realtime"
	"github.com/pwendlys/viaja-mais/internal/repository"
	"github.com/pwendlys/viaja-mais/internal/retry"
	"github.com/pwendlys/viaja-mais/internal/service"
	"github.com/pwendlys/viaja-mais/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize New Relic (optional)
	nrApp := middleware.NewRelicApp(cfg.NewRelicEnabled, cfg.NewRelicAppName, cfg.NewRelicLicenseKey)
	if nrApp != nil {
		if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			log.Printf("Warning: New Relic connection timeout: %v", err)
		} else {
			log.Println("New Relic connected")
		}
		defer nrApp.Shutdown(10 * time.Second)
	}

	// Initialize PostgreSQL
	db, err := database.NewPostgres(
		cfg.DatabaseURL,
		cfg.DBMaxConnections,
		cfg.DBMaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis
	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	log.Println("Connected to Redis")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LISTEN connection for row change events
	listenerPool, err := database.NewListenerPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.Printf("Warning: change feed disabled: %v", err)
	} else {
		defer listenerPool.Close()
	}

	// Local store for favorites and the offline queue
	store, err := localstore.Open(cfg.LocalStoreBackend, cfg.LocalStorePath, redis.Client)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()

	policy := retry.NewPolicy(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)

	// Initialize cache
	driverCache := cache.NewDriverLocationCache(redis.Client)

	// Initialize repositories
	rideRepo := repository.NewRideRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	historyRepo := repository.NewHistoryRepository(db.DB)
	pricingRepo := repository.NewPricingRepository(db.DB)
	geoRepo := repository.NewGeoRepository(db.DB)
	tableRepo := repository.NewTableRepository(db.DB)

	// Offline queue
	queue := offline.NewQueue(store, tableRepo, policy, cfg.SyncMaxRetries)
	monitor := offline.NewMonitor(queue, db, cfg.SyncPollInterval, policy)
	monitor.OnChange(func(online bool) {
		count, err := queue.PendingCount(context.Background())
		if err != nil {
			return
		}
		log.Printf("Connectivity changed (online=%t), %d operations pending", online, count)
	})

	// Realtime
	hub := realtime.NewHub()
	transport := realtime.NewRedisTransport(redis.Client)
	publisher := realtime.NewPublisher(transport, hub)
	feed := realtime.NewFeed()
	fanout := realtime.NewFanout()

	// Initialize services
	pricingService := service.NewPricingService(pricingRepo, cfg.Location(), cfg.AverageSpeedKMH)
	validationService := service.NewValidationService(rideRepo, driverRepo)
	rideService := service.NewRideService(
		rideRepo, driverRepo, profileRepo, historyRepo, geoRepo,
		pricingService, validationService, queue, policy, driverCache, publisher,
	)
	driverService := service.NewDriverService(driverRepo, driverCache, policy, publisher)
	matchingService := service.NewMatchingService(driverRepo, driverCache, cfg.MatchingMaxDistanceKM, cfg.AverageSpeedKMH)
	profileService := service.NewProfileService(profileRepo, policy)
	favoriteService := service.NewFavoriteService(store)
	adminService := service.NewAdminService(rideRepo, driverRepo, cfg.MetricsRefreshInterval, cfg.Location())
	routeService := service.NewRouteService(geoRepo, pricingService)

	registry := functions.NewDefault(functions.Services{
		Pricing:  pricingService,
		Rides:    rideService,
		Notifier: publisher,
		Admin:    adminService,
		Profiles: profileService,
		Routes:   routeService,
	}, cfg.FunctionTimeout)

	manager := realtime.NewManager(ctx, transport, feed, fanout, registry, realtime.Config{
		ConnectTimeout:    cfg.RealtimeConnectTimeout,
		HeartbeatInterval: cfg.RealtimeHeartbeatInterval,
		BackoffBase:       cfg.RealtimeBackoffBase,
		BackoffMax:        cfg.RealtimeBackoffMax,
	})
	defer manager.CloseAll()

	// Background workers
	go hub.Run(ctx)
	go monitor.Run(ctx)
	go adminService.Run(ctx)
	if listenerPool != nil {
		go feed.Listen(ctx, listenerPool, cfg.RealtimeBackoffBase)
	}

	// Initialize handlers
	rideHandler := handler.NewRideHandler(rideService, matchingService)
	driverHandler := handler.NewDriverHandler(driverService)
	pricingHandler := handler.NewPricingHandler(pricingService, routeService)
	profileHandler := handler.NewProfileHandler(profileService)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService)
	adminHandler := handler.NewAdminHandler(adminService)
	syncHandler := handler.NewSyncHandler(queue, monitor)
	streamHandler := handler.NewStreamHandler(manager, fanout, hub, registry, rideService)
	functionHandler := handler.NewFunctionHandler(registry)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"Link", middleware.ReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewRelic(nrApp))

	// Rate limiter (100 requests per minute per IP)
	rateLimiter := middleware.NewRateLimiter(redis.Client, 100, time.Minute)
	r.Use(rateLimiter.Handler)

	// Idempotency middleware
	idempotencyMw := middleware.NewIdempotencyMiddleware(redis.Client)
	r.Use(idempotencyMw.Handler)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		services := map[string]string{"database": "up", "redis": "up"}
		status := http.StatusOK
		if err := db.Health(ctx); err != nil {
			services["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if err := redis.Health(ctx); err != nil {
			services["redis"] = "down"
			status = http.StatusServiceUnavailable
		}
		pending, _ := queue.PendingCount(ctx)

		utils.JSON(w, status, map[string]interface{}{
			"services":          services,
			"online":            monitor.IsOnline(),
			"pending_sync":      pending,
			"realtime_sessions": manager.Active(),
		})
	})

	// Remote functions
	functionHandler.RegisterRoutes(r)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		rideHandler.RegisterRoutes(r)
		driverHandler.RegisterRoutes(r)
		pricingHandler.RegisterRoutes(r)
		profileHandler.RegisterRoutes(r)
		favoriteHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
		syncHandler.RegisterRoutes(r)
		streamHandler.RegisterRoutes(r)
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	log.Println("API endpoints:")
	log.Println("  POST /v1/rides                      - Create ride (queued offline when the database is down)")
	log.Println("  POST /v1/rides/match                - Rank nearby drivers")
	log.Println("  POST /v1/pricing/calculate          - Fare quote")
	log.Println("  POST /v1/drivers/{id}/location      - Update location")
	log.Println("  GET  /v1/users/{id}/notifications   - SSE notification stream")
	log.Println("  GET  /v1/rides/{id}/ws              - Websocket ride tracking")
	log.Println("  POST /v1/sync                       - Drain the offline queue")
	log.Println("  POST /functions/v1/{name}           - Remote functions")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
