package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/api/handlers"
	"github.com/maheshrc27/socialflow/internal/api/middleware"
	job "github.com/maheshrc27/socialflow/internal/jobs"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	accountRepo := repository.NewPlatformAccountRepository(db)
	sessionRepo := repository.NewOAuthSessionRepository(db)
	mastodonAppRepo := repository.NewMastodonAppRepository(db)
	postRepo := repository.NewPostRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	snapshotRepo := repository.NewAnalyticsSnapshotRepository(db)
	postAnalyticsRepo := repository.NewPostAnalyticsRepository(db)
	optimalTimeRepo := repository.NewOptimalTimeRepository(db)

	registry := platforms.NewRegistry(*cfg, mastodonAppRepo)
	queueClient := queue.NewClient(asynqClient)

	oauthService := service.NewOAuthService(registry, sessionRepo, accountRepo, cfg.SecretKey)
	credentialService := service.NewCredentialService(registry, accountRepo, cfg.SecretKey)
	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, attemptRepo, accountRepo, mediaAssetRepo, postMediaRepo, r2Service)
	publishService := service.NewPublishService(postRepo, attemptRepo, accountRepo, mediaAssetRepo, credentialService, registry, queueClient)
	analyticsService := service.NewAnalyticsService(accountRepo, attemptRepo, snapshotRepo, postAnalyticsRepo, optimalTimeRepo, postRepo, credentialService, registry)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	platform := handlers.NewPlatformHandler(oauthService, credentialService, registry, *cfg)
	app.Get("/platforms", platform.ListPlatforms)
	app.Get("/auth/:platform/callback", platform.Callback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/connect/:platform", platform.Connect)
	api.Post("/connect/bluesky", platform.ConnectBluesky)
	api.Get("/accounts", platform.ListAccounts)
	api.Post("/accounts/remove", platform.DisconnectAccount)

	post := handlers.NewPostHandler(postService, queueClient)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	analytics := handlers.NewAnalyticsHandler(analyticsService)
	api.Get("/analytics/account", analytics.AccountSnapshots)
	api.Get("/analytics/post", analytics.PostAnalytics)
	api.Get("/analytics/optimal_times", analytics.OptimalTimes)

	// cron jobs
	schedulerJob := job.NewSchedulerJob(postRepo, attemptRepo, queueClient)
	refreshTokenJob := job.NewTokenRefreshJob(credentialService)
	analyticsJob := job.NewAnalyticsJob(analyticsService)
	sessionCleanupJob := job.NewSessionCleanupJob(oauthService)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", schedulerJob.Tick)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 01h00m00s", sessionCleanupJob.Cleanup)
	c.AddFunc("@daily", analyticsJob.Sync)
	c.Start()

	worker := queue.NewWorker(publishService)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)
		mux.HandleFunc(queue.TaskTypePublishTarget, worker.HandlePublishTargetTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
