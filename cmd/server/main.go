package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"nuuko/internal/config"
	"nuuko/internal/feedback"
	"nuuko/internal/handlers"
	"nuuko/internal/jobs"
	"nuuko/internal/logging"
	"nuuko/internal/metrics"
	"nuuko/internal/prompts"
	"nuuko/internal/pubsub"
	"nuuko/internal/store"
	"nuuko/internal/summary"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting nuuko server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err == nil {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DB: %s, Data: %s)", cfg.Port, cfg.DatabasePath, cfg.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionID := uuid.NewString()

	// Optional Redis: cross-instance change notifications and a shared
	// token window.
	var notifier pubsub.Notifier = pubsub.Noop{}
	var tokenWindow summary.TokenWindow
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️ Redis unreachable, running single-instance: %v", err)
			redisClient = nil
		} else {
			log.Println("✅ Redis connected successfully")
			notifier = pubsub.NewRedisNotifier(redisClient, sessionID)
			tokenWindow = summary.NewRedisTokenWindow(redisClient)
		}
	}

	st, err := store.Open(ctx, store.Options{
		DatabasePath: cfg.DatabasePath,
		DataDir:      cfg.DataDir,
		Notifier:     notifier,
		SessionID:    sessionID,
	})
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	if err := notifier.Start(); err != nil {
		log.Printf("⚠️ Change notifications disabled: %v", err)
	}

	summaryService, err := summary.NewService(summary.Options{
		Store:        st,
		APIKey:       cfg.GeminiAPIKey,
		Threshold:    cfg.TokenThresholdPerMin,
		Window:       tokenWindow,
		DataDir:      cfg.DataDir,
		ForceOffline: cfg.SummaryOffline,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize summary service: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("⚠️ GEMINI_API_KEY not set - summary generation disabled")
	}

	// Drain anything queued from a previous run, then keep watching.
	if summaryService.QueueLength() > 0 {
		go func() {
			if _, err := summaryService.FlushQueue(ctx); err != nil {
				log.Printf("⚠️ Startup queue flush failed: %v", err)
			}
		}()
	}
	go summaryService.WatchConnectivity(ctx, 30*time.Second)

	promptEngine, err := prompts.NewEngine()
	if err != nil {
		log.Fatalf("❌ Failed to load prompt pack: %v", err)
	}
	if cfg.PromptsPath != "" {
		if err := prompts.Watch(ctx, promptEngine, cfg.PromptsPath); err != nil {
			log.Printf("⚠️ On-disk prompt pack unavailable, using embedded pack: %v", err)
		}
	}

	feedbackClient := feedback.NewClient(cfg.FeedbackURL)

	scheduler, err := jobs.NewScheduler(st, summaryService)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "nuuko v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    10 * 1024 * 1024, // 10MB covers large imports
	})

	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("nuuko")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: allowedOrigins != "*",
	}))

	hub := handlers.NewHub(st)

	// Custom metrics on top of the HTTP middleware
	metrics.Init(hub.Count, summaryService.QueueLength)
	st.SubscribeChanges(func(changeType string) {
		if m := metrics.Get(); m != nil {
			m.StoreChanges.WithLabelValues(changeType).Inc()
		}
	})
	log.Println("✅ Prometheus metrics initialized")

	handlers.Register(app, handlers.Deps{
		Store:    st,
		Summary:  summaryService,
		Prompts:  promptEngine,
		Feedback: feedbackClient,
		Hub:      hub,
	})

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}
		if err := notifier.Stop(); err != nil {
			log.Printf("⚠️ Error stopping notifier: %v", err)
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}
		cancel()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
