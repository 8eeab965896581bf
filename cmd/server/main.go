package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pooltap.app/earnhub/internal/bootstrap"
	"pooltap.app/earnhub/internal/config"
	"pooltap.app/earnhub/internal/server"
	"pooltap.app/earnhub/pkg/cache"
	"pooltap.app/earnhub/pkg/database"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/response"
	"pooltap.app/earnhub/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	response.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	if err := bootstrap.SeedAdmin(db, cfg.AdminIdentifier, cfg.AdminPassword, log); err != nil {
		log.Fatal("failed to seed admin user", "error", err)
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL, log)
	if err != nil {
		// cache and realtime are optional
		log.Warn("redis unavailable, continuing without it", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var evidence storage.EvidenceStorage
	if os.Getenv("CLOUDINARY_URL") != "" {
		evidence, err = storage.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.EvidenceFolder)
		if err != nil {
			log.Fatal("failed to initialize cloudinary storage", "error", err)
		}
	} else {
		log.Warn("CLOUDINARY_URL not set, evidence uploads disabled")
	}

	srv, err := server.NewServer(cfg, db, redisClient, evidence, log)
	if err != nil {
		log.Fatal("failed to build server", "error", err)
	}
	if err := srv.Run(ctx); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
