package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/api/handlers"
	"github.com/maheshrc27/postpilot/internal/api/middleware"
	"github.com/maheshrc27/postpilot/internal/database"
	job "github.com/maheshrc27/postpilot/internal/jobs"
	applog "github.com/maheshrc27/postpilot/internal/logger"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.LoadConfig()
	applog.Init(cfg.IsDev(), cfg.SentryDSN)
	if envErr != nil {
		slog.Warn("no .env file loaded", "error", envErr)
	}

	ctx := context.Background()

	db, err := database.Open(cfg.PostgresURI)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer closeDB(db)

	if err := database.RunMigrations(db); err != nil {
		fatal("failed to migrate database", err)
	}

	rdb, err := newRedisClient(cfg.RedisURI)
	if err != nil {
		fatal("invalid redis uri", err)
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal("redis is unreachable", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		fatal("failed to set up media store", err)
	}

	provider, err := service.NewGeminiProvider(ctx, cfg.Gemini)
	if err != nil {
		fatal("failed to set up AI provider", err)
	}

	userRepo := repository.NewUserRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db, mediaAssetRepo)
	logRepo := repository.NewApiScheduleLogRepository(db)
	aiResultRepo := repository.NewAIResultRepository(rdb, cfg.AIResultTTL)

	authService := service.NewAuthService(cfg, userRepo)
	userService := service.NewUserService(userRepo)
	aiService := service.NewAIService(provider, store, cfg.Gemini.Timeout)
	uploadPostService := service.NewUploadPostService(cfg.UploadPost, store)
	scheduleService := service.NewScheduleService(
		scheduleRepo,
		mediaAssetRepo,
		logRepo,
		aiResultRepo,
		aiService,
		uploadPostService,
		store,
		service.LoadLocation(cfg.ScheduleTimezone))

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	if cfg.Media.Backend != "r2" {
		app.Static(cfg.Media.PublicURL, cfg.Media.Root)
	}

	auth := handlers.NewAuthHandler(cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	registerScheduleRoutes(api, handlers.NewScheduleHandler(scheduleService))

	// cron jobs
	reconcileJob := job.NewReconcileJob(scheduleService, 5*time.Minute)

	c := cron.New()
	if err := c.AddFunc(cfg.ReconcileInterval, reconcileJob.Run); err != nil {
		fatal("invalid reconcile interval", err)
	}
	c.Start()
	defer c.Stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			fatal("failed to start server", err)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	gracefulShutdown(app)
}

func registerScheduleRoutes(router fiber.Router, h *handlers.ScheduleHandler) {
	router.Post("/schedules", h.CreateSchedule)
	router.Get("/schedules", h.ListSchedules)
	router.Get("/schedules/logs", h.ListLogs)
	router.Post("/schedules/:id/ai", h.RunAI)
	router.Get("/schedules/:id/confirmation", h.Confirmation)
	router.Post("/schedules/:id/confirm", h.ProcessConfirmation)
	router.Patch("/schedules/:id", h.Reschedule)
	router.Delete("/schedules/:id", h.RemoveSchedule)
}

func newRedisClient(uri string) (*redis.Client, error) {
	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		opts, err := redis.ParseURL(uri)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: uri}), nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Media.Backend == "r2" {
		r2, err := storage.NewR2Store(ctx, cfg.R2)
		if err != nil {
			return nil, err
		}
		return r2, nil
	}

	local, err := storage.NewLocalStore(cfg.Media.Root, cfg.Media.PublicURL)
	if err != nil {
		return nil, err
	}
	return local, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func closeDB(db *sql.DB) {
	slog.Info("closing database connection")
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	slog.Info("server shutdown complete")
}
