package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/moodtape/audiogen/internal/config"
	"github.com/moodtape/audiogen/internal/devserver"
	"github.com/moodtape/audiogen/internal/devserver/service"
	"github.com/moodtape/audiogen/internal/devserver/storage"
	"github.com/moodtape/audiogen/internal/devserver/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Redis is optional: without it the devserver runs fully in-process
	// with an in-memory store and inline worker.
	var redisClient *redis.Client
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rc.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: Redis not available, running in-process: %v", err)
	} else {
		redisClient = rc
	}

	var st store.Store
	var enq service.Enqueuer
	var asynqClient *asynq.Client
	if redisClient != nil {
		st = store.NewRedisStore(redisClient)
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		enq = service.NewAsynqEnqueuer(asynqClient)
	}

	var storageClient storage.Storage
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2, err := storage.NewR2Storage(&cfg.R2)
		if err != nil {
			log.Fatalf("Failed to initialize R2 storage: %v", err)
		}
		storageClient = r2
	} else {
		log.Println("Info: R2 storage not configured, using mock storage")
		storageClient = storage.NewMockStorage("http://localhost:" + cfg.Server.Port + "/mock-storage")
	}

	app := devserver.New(devserver.Options{
		Store:         st,
		Storage:       storageClient,
		Redis:         redisClient,
		Enqueuer:      enq,
		SubmitPerHour: cfg.RateLimit.SubmitPerHour,
		LogLevel:      cfg.Server.LogLevel,
	})

	// With Redis present, generation tasks run on an asynq worker server
	// instead of inline goroutines.
	if redisClient != nil {
		go startWorkerServer(cfg, app)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Devserver starting on %s", addr)
	if err := app.Fiber.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, app *devserver.App) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			LogLevel:    asynqLogLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGenerate, app.Worker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}
