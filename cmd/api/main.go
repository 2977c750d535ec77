// @title Dify Manga API
// @version 1.0
// @description Generates educational manga through a Dify workflow and keeps a library of the results.
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "dify-manga/cmd/api/docs"
	"dify-manga/internal/bootstrap"
	"dify-manga/internal/config"
	"dify-manga/internal/handler"
	"dify-manga/internal/logger"
	"dify-manga/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	container, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer container.Close()

	protect := middleware.Passthrough()
	if cfg.Auth.Enabled {
		protect = middleware.Protected(middleware.NewHMACVerifier(cfg.Auth.JWTSecret))
		appLogger.Info("Bearer authentication enabled for library and session routes")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       300,
	}))

	streamCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	handler.SetupRoutes(app, handler.Handlers{
		Generation: handler.NewGenerationHandler(container.Generation, container.Stream).WithBaseContext(streamCtx),
		Library:    handler.NewLibraryHandler(container.Library),
		Snapshot:   handler.NewSnapshotHandler(container.Snapshots),
		Proxy:      handler.NewProxyHandler(container.Proxy),
		Health:     handler.NewHealthHandler(container.DB, handler.PingFunc(container.Cache.Ping)),
	}, protect)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	stopStreams()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
