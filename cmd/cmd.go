package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photolog-backend/internal/config"
	"photolog-backend/internal/handlers"
	"photolog-backend/internal/location"
	"photolog-backend/internal/media"
	"photolog-backend/internal/middleware"
	"photolog-backend/internal/notify"
	"photolog-backend/internal/permissions"
	"photolog-backend/internal/pipeline"
	"photolog-backend/internal/repository"
	"photolog-backend/internal/services"
	"photolog-backend/internal/stats"
	"photolog-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	deviceRepo := repository.NewDeviceRepository(db)
	photoRepo := repository.NewPhotoLogRepository(db)

	// Initialize permission grants and location plumbing
	perms := permissions.NewStatic(cfg.Permissions.Granted)
	reported := location.NewReportedStore()
	registry := location.NewRegistry(reported, perms, func(ctx context.Context, deviceID string) (string, int, error) {
		device, err := deviceRepo.GetByID(ctx, deviceID)
		if err != nil {
			return "", 0, err
		}
		return device.Platform, device.PlatformVersion, nil
	})
	locOpts := location.Options{
		HighAccuracy:         cfg.Location.HighAccuracy,
		Timeout:              cfg.Location.Timeout(),
		MaxAge:               cfg.Location.MaxAge(),
		DistanceFilterMeters: cfg.Location.DistanceFilterM,
	}

	// Initialize media storage
	localStore, err := storage.NewLocalStore(cfg.Storage.MediaDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media storage")
	}

	var s3Store *storage.S3Store
	var archiver pipeline.Archiver
	if cfg.Storage.S3.Enabled {
		s3Store, err = storage.NewS3Store(
			context.Background(),
			cfg.Storage.S3.Region,
			cfg.Storage.S3.Bucket,
			cfg.Storage.S3.AccessKey,
			cfg.Storage.S3.SecretKey,
			cfg.Storage.S3.Endpoint,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 archive")
		}
		archiver = s3Store
	}

	// Initialize services
	deviceService := services.NewDeviceService(deviceRepo, cfg.JWT.Secret)
	statsStore := stats.NewStore()
	gateway := notify.NewGateway(perms)

	var confirmer notify.Confirmer
	switch cfg.Push.Mode {
	case "apns":
		confirmer, err = notify.NewAPNSConfirmer(
			cfg.Push.APNS.CertFile,
			cfg.Push.APNS.CertPassword,
			cfg.Push.APNS.Topic,
			cfg.Push.APNS.Production,
			gateway,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs confirmer")
		}
	default:
		// Simulated delivery channel: every confirmation succeeds.
		confirmer = notify.StubConfirmer{}
		log.Warn().Msg("Push delivery confirmation running in stub mode")
	}

	runner := pipeline.NewRunner(photoRepo, localStore, confirmer, gateway, statsStore, archiver, locOpts)
	hub := services.NewStatsHub()

	// Fan counter updates and surfaced notifications out to the live feed
	statsSub := statsStore.Subscribe(func(snap stats.Snapshot) {
		hub.Broadcast(services.FeedMessage{Type: "stats", Stats: &snap})
	})
	receivedSub := gateway.OnReceived(func(n notify.Notification) {
		hub.Broadcast(services.FeedMessage{Type: "notification", Notification: &n})
	})

	// Initialize handlers
	acquirerFor := func(p media.Picker) *media.Acquirer {
		return media.NewAcquirer(p, perms)
	}
	deviceHandler := handlers.NewDeviceHandler(deviceService, gateway)
	captureHandler := handlers.NewCaptureHandler(runner, photoRepo, registry, reported, acquirerFor, s3Store)
	statsHandler := handlers.NewStatsHandler(statsStore)
	locationHandler := handlers.NewLocationHandler(registry, reported, localStore, locOpts)
	wsHandler := handlers.NewWebSocketHandler(hub, deviceService, statsStore, gateway)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/devices", deviceHandler.CreateDevice)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(deviceService))
			r.Post("/captures", captureHandler.UploadCapture)
			r.Get("/photos", captureHandler.GetPhotos)
			r.Get("/stats", statsHandler.GetStats)
			r.Get("/location", locationHandler.GetLocation)
			r.Post("/location/report", locationHandler.ReportLocation)
			r.Post("/push/register", deviceHandler.RegisterPush)
		})
	})

	// WebSocket route
	r.Get("/ws/stats", wsHandler.HandleStatsFeed)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Release listeners before tearing the feed down so nothing fires into
	// closed connections
	receivedSub.Release()
	statsStore.Unsubscribe(statsSub)
	hub.Close()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
