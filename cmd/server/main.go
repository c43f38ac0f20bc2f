package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fadilmartias/project-evaluator/internal/config"
	"github.com/fadilmartias/project-evaluator/internal/domain/fiber/handler"
	"github.com/fadilmartias/project-evaluator/internal/metrics"
	"github.com/fadilmartias/project-evaluator/internal/middleware"
	"github.com/fadilmartias/project-evaluator/internal/repository"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
	"github.com/fadilmartias/project-evaluator/internal/service"
	"github.com/fadilmartias/project-evaluator/internal/usecase"
	"github.com/fadilmartias/project-evaluator/internal/util"
	"github.com/fadilmartias/project-evaluator/internal/worker"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()
	evalConfig := config.LoadEvaluatorConfig()

	level := slog.LevelDebug
	if appConfig.IsProduction() {
		level = slog.LevelInfo
	}
	appLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(appLog)

	rubrics, err := rubric.Load(evalConfig.RubricDir)
	if err != nil {
		log.Fatalf("Could not load rubrics: %v", err)
	}
	log.Printf("Loaded rubrics: %s", strings.Join(rubrics.Languages(), ", "))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store := repository.NewCachedEvaluationRepository(ConnectStore(), evalConfig.StatsCacheTTL)

	dispatcher := worker.NewDispatcher(evalConfig.Workers, evalConfig.QueueSize,
		worker.WithMetrics(m),
		worker.WithLogger(appLog),
	)
	dispatcher.Start()

	opts := []usecase.Option{
		usecase.WithDispatcher(dispatcher),
		usecase.WithJobTracker(usecase.NewJobTracker(evalConfig.JobTTL)),
		usecase.WithConcurrency(evalConfig.Concurrency),
		usecase.WithMetrics(m),
		usecase.WithLogger(appLog),
	}
	if uploadConfig := config.LoadUploadServiceConfig(); uploadConfig.BaseURL != "" {
		opts = append(opts, usecase.WithManifestSource(service.NewUploadServiceClient(uploadConfig)))
	} else {
		log.Println("Warning: UPLOAD_SERVICE_URL not set, regenerate is disabled")
	}
	evaluations := usecase.NewEvaluationUsecase(store, rubrics, opts...)
	queries := usecase.NewQueryUsecase(store, rubrics)

	app := fiber.New(fiber.Config{
		AppName: appConfig.Name,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			// Status code defaults to 500
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}
			return util.ErrorResponse(ctx, util.ErrorResponseFormat{Code: code, Message: message}, err)
		},
	})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // 1
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))
	app.Use(healthcheck.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Get("/metrics", handler.NewMetricsHandler(registry))

	app.Use(middleware.APIKeyAuth(config.LoadAuthConfig().APIKeys, func(c *fiber.Ctx) bool {
		switch c.Path() {
		case "/livez", "/readyz", "/metrics":
			return true
		}
		return false
	}))
	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	handler.NewEvaluationHandler(evaluations, queries).RegisterRoutes(app)
	handler.NewRubricHandler(rubrics).RegisterRoutes(app)

	// Monitor goroutine count
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			log.Printf("Active goroutines: %d", runtime.NumGoroutine())
		}
	}()

	go func() {
		log.Println("Server running on ", appConfig.Port)
		if err := app.Listen(appConfig.Port); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		log.Printf("Background jobs did not finish: %v", err)
	}
	log.Println("Server stopped")
}

// ConnectStore opens the configured evaluation store. DB_DRIVER=memory keeps
// everything in process, which suits local runs.
func ConnectStore() repository.EvaluationStore {
	if config.LoadDBConfig().Driver == config.DBDriverMemory {
		log.Println("Using in-memory evaluation store")
		return repository.NewMemoryEvaluationRepository()
	}

	repo := repository.NewEvaluationRepository(ConnectDB())
	if err := repo.Migrate(); err != nil {
		log.Fatal("migration failed: ", err)
	}
	return repo
}

func ConnectDB() *gorm.DB {
	dbConfig := config.LoadDBConfig()
	appConfig := config.LoadAppConfig()

	db, err := gorm.Open(postgres.Open(dbConfig.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if !appConfig.IsProduction() {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(200)
		pgDB.SetConnMaxLifetime(time.Hour)
	}
	return db
}
