package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/domain"
	"github.com/abdulrehmanafzal-webdeveloper/shopease-go/internal/stubserver"
)

type Config struct {
	HTTPPort        string
	JWTSecret       string
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8000"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	srv := stubserver.New(cfg.JWTSecret, logger)
	seed(srv)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("stub backend listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("stub backend stopped")
}

// seed loads a small catalog so the CLI has something to browse.
func seed(srv *stubserver.Server) {
	srv.SeedCategory(domain.Category{
		ID:   1,
		Name: "Electronics",
		Subcategories: []domain.Subcategory{
			{ID: 1, CategoryID: 1, Name: "Audio"},
			{ID: 2, CategoryID: 1, Name: "Wearables"},
		},
	})
	srv.SeedProduct(domain.Product{Name: "Wireless Headphones", Price: 59.99, Stock: 25, SubcategoryID: 1})
	srv.SeedProduct(domain.Product{Name: "Bluetooth Speaker", Price: 34.50, Stock: 40, SubcategoryID: 1})
	srv.SeedProduct(domain.Product{Name: "Fitness Band", Price: 24.00, Stock: 60, SubcategoryID: 2})
	srv.SeedUser("Demo User", "demo@shopease.dev", "demo1234", "user")
}
