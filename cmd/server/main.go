package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ppe-backend/internal/attribution"
	"ppe-backend/internal/config"
	"ppe-backend/internal/database"
	"ppe-backend/internal/logger"
	"ppe-backend/internal/notify"
	"ppe-backend/internal/server"
	"ppe-backend/internal/sheet"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if err := database.Init(cfg); err != nil {
		zap.L().Fatal("database init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Live notification fan-out is optional; rows are always written.
	var publisher notify.Publisher
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			zap.L().Warn("redis unavailable, notifications will not be published", zap.Error(err))
		} else {
			publisher = notify.NewRedisPublisher(client, cfg.Redis.Channel)
			defer client.Close()
		}
	}

	var storage sheet.Storage
	if cfg.Minio.Enabled() {
		storage, err = sheet.NewMinioStorage(ctx, cfg.Minio)
	} else {
		storage, err = sheet.NewLocalStorage(cfg.SheetStoragePath)
	}
	if err != nil {
		zap.L().Fatal("sheet storage init failed", zap.Error(err))
	}

	emitter := notify.NewEmitter(database.DB, cfg.CriticalStockThreshold, publisher)
	app := server.New(cfg, server.Deps{
		Processor: attribution.NewProcessor(database.DB, emitter),
		Emitter:   emitter,
		Sheets:    sheet.NewService(database.DB, storage),
	})

	go func() {
		zap.L().Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			zap.L().Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zap.L().Error("shutdown failed", zap.Error(err))
	}
}
