package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studytrack-backend/internal/cache"
	"studytrack-backend/internal/config"
	"studytrack-backend/internal/connectivity"
	"studytrack-backend/internal/database"
	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/handlers"
	"studytrack-backend/internal/local"
	"studytrack-backend/internal/remote"
	"studytrack-backend/internal/router"
	"studytrack-backend/internal/stats"
	"studytrack-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting StudyTrack Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Remote Document Store ────
	var remoteStore remote.Store
	switch cfg.RemoteBackend {
	case config.BackendRedis:
		client, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis client initialization failed: %v", err)
		}
		defer client.Close()
		remoteStore = remote.NewRedisStore(client)
		log.Println("✓ Redis document store initialized")
	default:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL pool initialization failed: %v", err)
		}
		defer pool.Close()

		// Best-effort: the service boots with the database unreachable and
		// retries migrations once connectivity returns.
		if err := database.RunMigrations(pool, "migrations"); err != nil {
			log.Printf("✗ Database migrations deferred: %v", err)
		} else {
			log.Println("✓ Database migrations applied")
		}
		remoteStore = remote.NewPostgresStore(pool)
		log.Println("✓ PostgreSQL document store initialized")
	}

	// ──── Step 3: Open Local Persistent Store ────
	localStore, err := local.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("✗ Local store initialization failed: %v", err)
	}
	defer localStore.Close()
	log.Println("✓ Local store opened")

	// ──── Step 4: Connectivity Monitor & Prober ────
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	online := remoteStore.Ping(pingCtx) == nil
	cancelPing()
	monitor := connectivity.NewMonitor(online)
	if online {
		log.Println("✓ Remote store reachable, starting online")
	} else {
		log.Println("! Remote store unreachable, starting offline")
	}

	// ──── Step 5: Data Layer ────
	ttlCache := cache.New(cfg.CacheTTL, nil)
	store := datastore.New(remoteStore, localStore, ttlCache, monitor, datastore.Options{
		FetchTimeout: cfg.FetchTimeout,
	})
	aggregator := stats.New(store, ttlCache, nil)
	log.Println("✓ Data layer initialized")

	// ──── Step 6: WebSocket Hub & Event Wiring ────
	wsHub := websocket.NewHub()
	store.SetEventSink(wsHub.BroadcastMutation)

	monitor.Subscribe(func(isOnline bool) {
		wsHub.BroadcastConnectivity(isOnline)
		if isOnline {
			// Reconnect: push queued offline writes in the background.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				store.ReplayOutbox(ctx)
			}()
		}
	})
	log.Println("✓ WebSocket hub started")

	prober := connectivity.NewProber(monitor, remoteStore, cfg.ProbeInterval)
	prober.Start()
	log.Printf("✓ Connectivity prober started (every %s)", cfg.ProbeInterval)

	// ──── Step 7: Start HTTP Server ────
	courseHandler := handlers.NewCourseHandler(store, aggregator)
	lectureHandler := handlers.NewLectureHandler(store)
	labHandler := handlers.NewLabHandler(store)
	sessionHandler := handlers.NewSessionHandler(store)
	dashboardHandler := handlers.NewDashboardHandler(store, aggregator, monitor)

	r := router.New(
		courseHandler,
		lectureHandler,
		labHandler,
		sessionHandler,
		dashboardHandler,
		monitor,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
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

		log.Println("Shutting down...")
		prober.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyTrack Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
