// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/checkout-backend/internal/infrastructure/database/redis"
	"github.com/your-org/checkout-backend/internal/interfaces/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	logrus.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting application")

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB())
	if err := migration.RunAutoMigrations(); err != nil {
		logrus.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		logrus.Warnf("Index creation failed: %v", err)
	}

	// Sweep unpaid orders past their payment window
	orderService := order.NewService(db.GetDB(), cfg)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runExpirySweep(sweepCtx, orderService)

	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient())
	go func() {
		if err := server.Start(); err != nil {
			logrus.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logrus.Errorf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	logrus.Info("Server shutdown completed")
}

func setupLogging(cfg *config.Config) {
	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// runExpirySweep cancels stale payment_pending orders once a minute until the
// context is cancelled
func runExpirySweep(ctx context.Context, orders *order.Service) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orders.ExpireStalePendingOrders(time.Now().UTC()); err != nil {
				logrus.WithError(err).Error("Expiry sweep failed")
			}
		}
	}
}
