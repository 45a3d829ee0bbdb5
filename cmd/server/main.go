package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"perpus-loan/internal/adapters/http/middleware"
	"perpus-loan/internal/adapters/http/routes"
	"perpus-loan/internal/adapters/persistence/models"
	"perpus-loan/internal/config"
	"perpus-loan/internal/core/services"
	"perpus-loan/internal/pkg/logger"
	"perpus-loan/internal/pkg/telemetry"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	_ "perpus-loan/docs" // Swagger docs
)

// @title Perpustakaan Loan API
// @version 1.0
// @description Layanan peminjaman buku perpustakaan sekolah: pengajuan, persetujuan, pengembalian, perpanjangan dan denda keterlambatan.

// @contact.name API Support
// @contact.email perpustakaan@sekolah.sch.id

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog := logger.New(logger.Options{
		Dev:         cfg.IsDev(),
		Level:       cfg.LogLevel,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     routes.Version,
	})
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	tel, err := telemetry.New(ctx, telemetry.Options{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.AppMode,
		MetricInterval: cfg.Telemetry.MetricInterval,
	}, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := models.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to auto migrate", zap.Error(err))
	}
	zlog.Info("database migration completed")

	if cfg.Seed {
		if err := config.NewSeeder(db, zlog).Run(); err != nil {
			zlog.Warn("failed to seed data", zap.Error(err))
		}
	}

	rdb, err := config.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Perpustakaan Loan API v1.0",
		ErrorHandler: middleware.CustomErrorHandler(zlog),
		JSONEncoder:  jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:  jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	middleware.Setup(app, cfg, zlog)
	loanService := routes.Setup(app, db, rdb, cfg, zlog)

	var scheduler *services.OverdueScheduler
	if cfg.Scheduler.OverdueSweepCron != "" {
		scheduler, err = services.NewOverdueScheduler(loanService, cfg.Scheduler.OverdueSweepCron, cfg.Loan.Location, zlog)
		if err != nil {
			zlog.Fatal("invalid OVERDUE_SWEEP_CRON", zap.String("cron", cfg.Scheduler.OverdueSweepCron), zap.Error(err))
		}
		scheduler.Start()
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			zlog.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := config.CloseDatabase(); err != nil {
		zlog.Warn("failed to close database", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("failed to flush telemetry", zap.Error(err))
	}

	zlog.Info("server stopped gracefully")
}
