package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"estate-marketplace/internal/appointments"
	"estate-marketplace/internal/auth"
	"estate-marketplace/internal/cleanup"
	"estate-marketplace/internal/clock"
	"estate-marketplace/internal/config"
	"estate-marketplace/internal/database"
	"estate-marketplace/internal/handlers"
	"estate-marketplace/internal/lifecycle"
	"estate-marketplace/internal/ratelimit"
	"estate-marketplace/internal/scheduler"
	"estate-marketplace/internal/search"
	"estate-marketplace/internal/views"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config/marketplace.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Initialize the store based on configuration
	dbType := appConfig.Database.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "mysql")
	}

	var store database.Store
	if dbType == "postgres" {
		log.Println("Using PostgreSQL")
		pgCfg := appConfig.Database.Postgres
		pgStore, err := database.NewPGStore(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portString(pgCfg.Port), "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "marketplace_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "marketplace_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "marketplace_db"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		if err := pgStore.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		store = pgStore
	} else {
		log.Println("Using MySQL with GORM")
		mysqlCfg := appConfig.Database.MySQL
		gormStore, err := database.NewGormStore(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portString(mysqlCfg.Port), "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "marketplace_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "marketplace_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "marketplace_db"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		if err := gormStore.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		store = gormStore
	}
	defer store.Close()

	// Initialize Meilisearch
	var searchClient *search.SearchClient
	if appConfig.Search.Meilisearch.Enabled {
		host := getEnvOrConfig(appConfig.Search.Meilisearch.Host, "MEILISEARCH_HOST", "http://meilisearch:7700")
		apiKey := getEnvOrConfig(appConfig.Search.Meilisearch.APIKey, "MEILISEARCH_KEY", "")
		searchClient = search.NewSearchClient(host, apiKey)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: failed to initialize search index: %v", err)
		}
	}

	sysClock := clock.System{}

	// Initialize the view counter (Redis-backed when enabled)
	var counter *views.Counter
	if appConfig.Redis.Enabled {
		counter, err = views.NewRedisCounter(
			store,
			getEnvOrConfig(appConfig.Redis.Host, "REDIS_HOST", "redis"),
			getEnvOrConfig(portString(appConfig.Redis.Port), "REDIS_PORT", "6379"),
			getEnvOrConfig(appConfig.Redis.Password, "REDIS_PASSWORD", ""),
			appConfig.Redis.DB,
		)
		if err != nil {
			log.Printf("Warning: Redis unavailable, falling back to direct view counting: %v", err)
			counter = views.NewCounter(store)
		}
	} else {
		counter = views.NewCounter(store)
	}
	defer counter.Close()

	// Core services
	var indexer lifecycle.Indexer
	if searchClient != nil {
		indexer = searchClient
	}
	lifecycleSvc := lifecycle.NewService(store, sysClock, indexer, appConfig.Lifecycle.GetRetention())
	sweepSvc := cleanup.NewService(store, sysClock, indexer)
	apptSvc := appointments.NewService(store, sysClock, appConfig.Appointments.BookingWindowDays)

	sweepCfg := cleanup.Config{
		BatchSize:    appConfig.Lifecycle.SweepBatchSize,
		MaxDeletions: appConfig.Lifecycle.MaxDeletionsPerRun,
		DryRun:       appConfig.Lifecycle.SweepDryRun,
	}

	// Start the background scheduler
	var flushCounter *views.Counter
	if appConfig.Redis.Enabled {
		flushCounter = counter
	}
	appScheduler := scheduler.NewScheduler(sweepSvc, sweepCfg, appConfig.Lifecycle.GetSweepInterval(), flushCounter)
	if err := appScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	// Per-caller write rate limiter
	limiter := ratelimit.NewLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.Enabled,
		sysClock,
	)

	jwtSecret := getEnvOrConfig(appConfig.Auth.JWTSecret, "JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT secret is not configured (auth.jwt_secret or JWT_SECRET)")
	}

	// Setup Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	listingHandler := handlers.NewListingHandler(store, lifecycleSvc, counter, searchClient, sysClock, limiter)
	apptHandler := handlers.NewAppointmentHandler(apptSvc, limiter)
	adminHandler := handlers.NewAdminHandler(store, sweepSvc, appScheduler)

	api := r.Group("/api", auth.Middleware(jwtSecret))
	{
		api.POST("/listings", listingHandler.Create)
		api.GET("/listings", listingHandler.List)
		api.GET("/listings/:id", listingHandler.Get)
		api.DELETE("/listings/:id", listingHandler.Delete)
		api.POST("/listings/:id/resubmit", listingHandler.Resubmit)

		api.POST("/listings/:id/approve", auth.RequireReviewer(), listingHandler.Approve)
		api.POST("/listings/:id/reject", auth.RequireReviewer(), listingHandler.Reject)

		api.GET("/search", listingHandler.Search)

		api.POST("/appointments", apptHandler.Create)
		api.GET("/appointments", apptHandler.List)
		api.GET("/appointments/slots", apptHandler.Slots)
		api.PUT("/appointments/:id/status", apptHandler.SetStatus)
		api.PUT("/appointments/:id/meeting-link", apptHandler.SetMeetingLink)

		admin := api.Group("/admin", auth.RequireReviewer())
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.POST("/sweep/run", adminHandler.RunSweep)
			admin.GET("/sweep/logs", adminHandler.GetPurgeLogs)
		}
	}

	port := getEnvOrConfig(appConfig.Server.Port, "PORT", "8084")
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}

// portString renders a port for getEnvOrConfig, treating 0 as unset
func portString(port int) string {
	if port <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", port)
}
