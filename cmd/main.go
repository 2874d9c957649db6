package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	authconfig "office-dashboard/internal/auth/config"
	dashconfig "office-dashboard/internal/dashboard/config"
	"office-dashboard/internal/di"
	"office-dashboard/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port            string        `env:"SERVER_PORT" envDefault:"3000"`
	AllowOrigins    string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	serverCfg := &ServerConfig{}
	if err := env.Parse(serverCfg); err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}
	logCfg := logger.Config{}
	if err := env.Parse(&logCfg); err != nil {
		log.Fatalf("Failed to load logger configuration: %v", err)
	}
	appLogger := logger.New(logCfg)

	authCfg, err := authconfig.LoadConfig()
	if err != nil {
		appLogger.Fatalf("Failed to load auth configuration: %v", err)
	}
	dashCfg, err := dashconfig.LoadConfig()
	if err != nil {
		appLogger.Fatalf("Failed to load dashboard configuration: %v", err)
	}

	container := di.NewContainer(appLogger)
	defer func() {
		_ = container.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.InitializeInfrastructure(ctx, dashCfg); err != nil {
		appLogger.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	if err := container.InitializeAuth(ctx, authCfg); err != nil {
		appLogger.Fatalf("Failed to initialize auth module: %v", err)
	}
	if err := container.InitializeDashboard(ctx); err != nil {
		appLogger.Fatalf("Failed to initialize dashboard module: %v", err)
	}

	app, err := container.NewHTTPApp(di.HTTPOptions{AllowOrigins: serverCfg.AllowOrigins})
	if err != nil {
		appLogger.Fatalf("Failed to build HTTP app: %v", err)
	}
	container.DashboardModule.Start()

	serverAddr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)
	appLogger.Infof("Starting HTTP server on %s", serverAddr)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			appLogger.Errorf("Server failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received %v, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
	}
	appLogger.Info("Application stopped")
}
