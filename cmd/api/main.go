// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/cart"
	"github.com/fixstar/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/fixstar/storefront-backend/internal/infrastructure/database/redis"
	"github.com/fixstar/storefront-backend/internal/interfaces/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	// Connect to database
	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Health check
	if err := db.Health(); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}

	if err := redisClient.Health(); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB())

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.Printf("Warning: Data seeding failed: %v", err)
		}
		migration.GetTableInfo()
	}

	// Periodic cleanup of stale persisted carts
	cleanupDone := make(chan struct{})
	go runCartCleanup(cfg, db, cleanupDone)

	log.Println("✅ All systems operational!")

	// Create and start HTTP server
	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient())

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	log.Println("✅ Server shutdown completed")
}

// runCartCleanup drops persisted cart rows older than the configured max
// age on a fixed interval. Session carts expire on their own via Redis TTL.
func runCartCleanup(cfg *config.Config, db *postgres.Database, done <-chan struct{}) {
	cartService := cart.NewService(db.GetDB(), nil, cfg)

	ticker := time.NewTicker(cfg.Cart.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := cartService.CleanupExpired(cfg.Cart.CleanupMaxAge)
			if err != nil {
				log.Printf("⚠️ Cart cleanup failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("🧹 Cart cleanup removed %d stale items", removed)
			}
		case <-done:
			return
		}
	}
}
