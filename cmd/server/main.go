package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/group-guardian/internal/api"
	"github.com/ignite/group-guardian/internal/authority"
	"github.com/ignite/group-guardian/internal/config"
	"github.com/ignite/group-guardian/internal/directory"
	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/moderation"
	"github.com/ignite/group-guardian/internal/pkg/distlock"
	"github.com/ignite/group-guardian/internal/pkg/logger"
	"github.com/ignite/group-guardian/internal/queue"
	"github.com/ignite/group-guardian/internal/repository/postgres"
	"github.com/ignite/group-guardian/internal/scanner"
	"github.com/ignite/group-guardian/internal/service/blocklist"
	"github.com/ignite/group-guardian/internal/service/groupcfg"
	"github.com/ignite/group-guardian/internal/syncer"
	"github.com/ignite/group-guardian/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactIDs(cfg.Logging.RedactIDs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Redis is optional: without it the membership cache is skipped and the
	// drain lock is in-process.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("[main] Redis unreachable, continuing without cache: %v", err)
			redisClient = nil
		}
	}

	// Repositories
	blockRepo := postgres.NewBlockRepo(db)
	exemptRepo := postgres.NewExemptRepo(db)
	queueRepo := postgres.NewQueueRepo(db)
	metaRepo := postgres.NewMetaRepo(db)
	groupRepo := postgres.NewGroupSettingRepo(db)

	instanceID, err := metaRepo.EnsureInstanceID(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve instance id: %v", err)
	}
	log.Printf("[main] Instance id: %s", instanceID)

	// Services
	authorityClient := authority.NewClient(cfg.Authority)
	blockSvc := blocklist.NewService(blockRepo, exemptRepo, redisClient)
	groupSvc := groupcfg.NewService(groupRepo, domain.Mode(cfg.Moderation.DefaultMode))
	syncEngine := syncer.NewEngine(authorityClient, blockSvc, metaRepo, instanceID)

	var archiver queue.Archiver
	if cfg.Queue.DeadLetterS3Bucket != "" {
		s3Archiver, err := queue.NewS3Archiver(ctx, cfg.Queue.DeadLetterS3Bucket, cfg.Queue.DeadLetterS3Region)
		if err != nil {
			log.Printf("[main] S3 archiver unavailable, dead letters log-only: %v", err)
		} else {
			archiver = s3Archiver
		}
	}
	drainGuard := distlock.New(redisClient, "guardian:lock:drain", 5*time.Minute)
	queueSvc := queue.NewService(queueRepo, authorityClient, archiver, drainGuard, instanceID)

	engine, err := moderation.NewEngine(blockSvc, groupSvc, cfg.Moderation)
	if err != nil {
		log.Fatalf("Failed to build moderation engine: %v", err)
	}

	// Platform connectors register themselves here; the standalone server
	// starts with none and still serves sync, queue, and admin traffic.
	registry := directory.StaticRegistry{}
	scan := scanner.New(blockSvc, engine, registry, cfg.Moderation, cfg.Scanner)

	// Workers
	syncWorker := worker.NewSyncWorker(syncEngine, scan,
		time.Duration(cfg.Authority.SyncIntervalMinutes)*time.Minute)
	drainWorker := worker.NewDrainWorker(queueSvc,
		time.Duration(cfg.Queue.DrainIntervalMinutes)*time.Minute)
	go syncWorker.Start(ctx)
	go drainWorker.Start(ctx)

	// HTTP server
	handlers := api.NewHandlers(blockSvc, groupSvc, scan, syncEngine, queueSvc, authorityClient, registry)
	server := api.NewServer(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("[main] Admin API listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[main] HTTP server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("[main] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] HTTP shutdown: %v", err)
	}
}
