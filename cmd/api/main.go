package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wot-clan-dashboard/internal/cache"
	"wot-clan-dashboard/internal/config"
	"wot-clan-dashboard/internal/handler"
	"wot-clan-dashboard/internal/middleware"
	"wot-clan-dashboard/internal/repository"
	"wot-clan-dashboard/internal/router"
	"wot-clan-dashboard/internal/service"
	"wot-clan-dashboard/internal/wargaming"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting WOT Clan Dashboard API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)
	if cfg.Wargaming.AppID == "" || cfg.Wargaming.ClanID == "" {
		log.Println("Warning: WOT_APP_ID or CLAN_ID not configured; sync will fetch nothing")
	}

	// Relational store
	store, err := repository.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	playerRepo := repository.NewPlayerRepository(store)
	garageRepo := repository.NewGarageRepository(store)
	userRepo := repository.NewUserRepository(store)

	// Remote API client with file-backed roster cache
	membersCache := cache.NewMembersCache(cfg.Sync.MembersCachePath, cfg.Sync.MembersCacheTTL)
	wgClient := wargaming.NewClient(cfg.Wargaming.AppID, cfg.Wargaming.ClanID, cfg.Wargaming.Realm, membersCache)

	// Sync coordinator + worker loop
	tankCache := cache.NewTankCache(cfg.Sync.TankCachePath)
	syncService := service.NewSyncService(wgClient, playerRepo, garageRepo, tankCache, cfg.Sync)

	scheduler := service.NewSyncScheduler(syncService, cfg.Sync.Interval)
	scheduler.Start()
	defer scheduler.Stop()

	// Session store: Redis when configured, in-memory otherwise
	var sessionCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisCacheConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory sessions: %v", err)
			sessionCache = cache.NewMemoryCache()
		} else {
			log.Println("Redis session store initialized")
			sessionCache = redisCache
		}
	} else {
		sessionCache = cache.NewMemoryCache()
	}
	defer sessionCache.Close()

	// Services
	sessionService := service.NewSessionService(sessionCache, cfg.Cache.SessionTTL)
	authService := service.NewAuthService(userRepo, playerRepo, wgClient, sessionService)

	// Handlers
	healthHandler := handler.New(store.DB(), cfg.App.Version)
	syncHandler := handler.NewSyncHandler(garageRepo, syncService, scheduler)
	garageHandler := handler.NewGarageHandler(garageRepo, playerRepo, syncService)
	authHandler := handler.NewAuthHandler(authService)
	adminHandler := handler.NewAdminHandler(userRepo, syncService)

	// Router
	r := router.New(router.Config{
		Handler:       healthHandler,
		SyncHandler:   syncHandler,
		GarageHandler: garageHandler,
		AuthHandler:   authHandler,
		AdminHandler:  adminHandler,
		SessionAuth:   middleware.NewSessionAuth(authService),
	})

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
