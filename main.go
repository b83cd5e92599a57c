// Package main provides the main entry point for the PriceShield price tracking backend
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/priceshield/priceshield-backend/app/handlers"
	"github.com/priceshield/priceshield-backend/app/router"
	"github.com/priceshield/priceshield-backend/app/scheduler"
	"github.com/priceshield/priceshield-backend/app/services"
	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/config"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting PriceShield application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	productRepo := repository.NewProductRecordRepository(db)
	observationRepo := repository.NewPriceObservationRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	searchHistoryRepo := repository.NewSearchHistoryRepository(db)
	updateStatRepo := repository.NewUpdateStatRepository(db)

	// Initialize the retailer catalog client
	catalog := services.NewCatalogClient(
		cfg.Scraper.RequestTimeout,
		services.WithRequestInterval(cfg.Scraper.RequestInterval),
	)

	// Initialize the ingestion pipeline
	resolver := businessflow.NewIdentityResolver(productRepo)
	ledger := businessflow.NewPriceLedger(observationRepo)
	policy := businessflow.NewAlertPolicy(alertRepo)
	ingestFlow := businessflow.NewIngestFlow(resolver, ledger, policy, productRepo, searchHistoryRepo)

	// Initialize flows
	productFlow := businessflow.NewProductFlow(catalog, ingestFlow, productRepo, alertRepo, searchHistoryRepo, updateStatRepo)
	alertFlow := businessflow.NewAlertFlow(alertRepo, rc, &cfg.Cache)
	dashboardFlow := businessflow.NewDashboardFlow(catalog, productRepo, observationRepo, alertRepo)

	// Background search job workers
	jobCtx, jobCancel := context.WithCancel(context.Background())
	searchJobs := services.NewSearchJobService(productFlow, rc, cfg.Cache.RedisPrefix, cfg.Scraper.JobWorkers, cfg.Scraper.JobQueueSize)
	waitJobs := searchJobs.Start(jobCtx)
	stopFuncs = append(stopFuncs, jobCancel, waitJobs)

	// Catalog refresh scheduler
	catalogScheduler := scheduler.NewCatalogScheduler(
		catalog,
		ingestFlow,
		productRepo,
		observationRepo,
		alertRepo,
		searchHistoryRepo,
		updateStatRepo,
		cfg.Scheduler,
		cfg.Logging,
	)
	if cfg.Scheduler.Enabled {
		stopScheduler := catalogScheduler.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	// Initialize handlers
	productHandler := handlers.NewProductHandler(productFlow, searchJobs)
	alertHandler := handlers.NewAlertHandler(alertFlow)
	dashboardHandler := handlers.NewDashboardHandler(dashboardFlow)
	schedulerHandler := handlers.NewSchedulerHandler(catalogScheduler)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, productHandler, alertHandler, dashboardHandler, schedulerHandler)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
