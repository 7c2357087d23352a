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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"calshare-server/internal/config"
	"calshare-server/internal/database"
	"calshare-server/internal/handlers"
	"calshare-server/internal/notify"
	"calshare-server/internal/repositories"
	"calshare-server/internal/services"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	if err := database.EnsureSchema(ctx, postgresPool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	calendarRepo := repositories.NewPostgresCalendarRepository(postgresPool)
	scheduleRepo := repositories.NewPostgresScheduleRepository(postgresPool)
	calendarLock := repositories.NewRedisCalendarLock(redisClient)

	// Notification hub
	hub := notify.NewHub(10*time.Second, 60*time.Second, 54*time.Second)
	go hub.Run()
	defer hub.Stop()

	// Services
	var gate *services.DeviceGate
	if cfg.DeviceTokenSecret != "" {
		issuer := services.NewDeviceTokenIssuer(cfg.DeviceTokenSecret, cfg.DeviceTokenExpiry)
		gate = services.NewDeviceGate(issuer, cfg.RequireDeviceToken)
	}

	directory := services.NewDeviceDirectory(deviceRepo)
	registry := services.NewShareCodeRegistry(calendarRepo)
	reconciler := services.NewScheduleReconciler(scheduleRepo, calendarRepo)
	publisher := services.NewCalendarPublisher(directory, registry, reconciler, calendarRepo, calendarLock, gate, cfg.ShareTTLDays)
	access := services.NewShareAccessService(registry, directory, reconciler, calendarRepo, deviceRepo, scheduleRepo, calendarLock, gate, notify.NewCalendarNotifier(hub))

	// Handlers
	shareHandler := handlers.NewShareHandler(publisher, access, cfg.ShareBaseURL)
	calendarHandler := handlers.NewCalendarHandler(access)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Initialize HTTP Server
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/api/share", func(r chi.Router) {
		r.Post("/", shareHandler.Publish)
		r.Get("/{shareCode}", shareHandler.Read)
		r.Post("/{shareCode}/import", shareHandler.Import)
		r.Post("/{shareCode}/sync", shareHandler.Sync)
	})

	router.Route("/api/calendars", func(r chi.Router) {
		r.Post("/share", shareHandler.Publish)
		r.Get("/{shareCode}", calendarHandler.Metadata)
		r.Put("/{shareCode}", calendarHandler.UpdateMetadata)
		r.Get("/{shareCode}/schedules", calendarHandler.ListSchedules)
		r.Post("/{shareCode}/schedules", calendarHandler.AddSchedule)
		r.Put("/{shareCode}/schedules/{localId}", calendarHandler.UpdateSchedule)
		r.Delete("/{shareCode}/schedules/{localId}", calendarHandler.DeleteSchedule)
		r.Post("/{shareCode}/sync", shareHandler.Sync)
	})

	router.Get("/ws", wsHandler.HandleConnection)

	// Health check endpoints
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Calendar Sharing Service API - No Login Required","status":"online"}`))
	})

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
