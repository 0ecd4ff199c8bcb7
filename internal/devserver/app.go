// Package devserver assembles the local stub backend: an HTTP server that
// accepts recap jobs, simulates the generation pipeline, and serves the
// status and download endpoints the SDK polls against.
package devserver

import (
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/moodtape/audiogen/internal/devserver/handler"
	"github.com/moodtape/audiogen/internal/devserver/service"
	"github.com/moodtape/audiogen/internal/devserver/storage"
	"github.com/moodtape/audiogen/internal/devserver/store"
	"github.com/moodtape/audiogen/internal/devserver/worker"
	"github.com/moodtape/audiogen/internal/middleware"
	ws "github.com/moodtape/audiogen/internal/websocket"
)

// Options wires the devserver's pluggable pieces. Zero values select the
// standalone defaults: in-memory store, mock storage, inline worker, no
// rate limiting.
type Options struct {
	Store   store.Store
	Storage storage.Storage

	// Redis enables per-user rate limiting when set.
	Redis *redis.Client

	// Enqueuer overrides job dispatch. Nil runs the worker in-process.
	Enqueuer service.Enqueuer

	// StepDelay paces the simulated pipeline; tests set it near zero.
	StepDelay time.Duration

	SubmitPerHour int
	LogLevel      string
}

// App is an assembled devserver.
type App struct {
	Fiber   *fiber.App
	Jobs    *service.JobService
	Worker  *worker.GenerateWorker
	Hub     *ws.Hub
	Storage storage.Storage
}

// New assembles the devserver from its parts.
func New(opts Options) *App {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMockStorage("")
	}

	hub := ws.NewHub()
	go hub.Run()

	// The inline enqueuer needs the worker's Process method, and the
	// worker needs the job service, which needs an enqueuer. Late-bind.
	var inline *service.InlineEnqueuer
	enq := opts.Enqueuer
	if enq == nil {
		inline = &service.InlineEnqueuer{}
		enq = inline
	}

	jobs := service.NewJobService(opts.Store, enq, opts.Storage)
	w := worker.NewGenerateWorker(jobs, opts.Storage, hub, opts.StepDelay)
	if inline != nil {
		inline.Process = w.Process
	}

	jobHandler := handler.NewJobHandler(jobs)
	rateLimiter := middleware.NewRateLimiter(opts.Redis)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(opts.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		_, usingRedis := opts.Store.(*store.RedisStore)
		_, mockStorage := opts.Storage.(*storage.MockStorage)
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   usingRedis,
				"storage": !mockStorage,
				"queue":   opts.Enqueuer != nil,
			},
		})
	})

	submitLimit := opts.SubmitPerHour
	if submitLimit <= 0 {
		submitLimit = 20
	}
	app.Post("/job", rateLimiter.SubmitLimit(submitLimit), jobHandler.Submit)
	app.Get("/job/:job_id", jobHandler.Status)
	app.Post("/job/:job_id/download", jobHandler.Download)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:job_id", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("job_id"))
	}))

	return &App{
		Fiber:   app,
		Jobs:    jobs,
		Worker:  w,
		Hub:     hub,
		Storage: opts.Storage,
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
