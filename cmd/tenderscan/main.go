package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenderscan/internal/api"
	"tenderscan/internal/auth"
	"tenderscan/internal/config"
	"tenderscan/internal/contract"
	"tenderscan/internal/extract"
	"tenderscan/internal/llm"
	"tenderscan/internal/monitoring"
	"tenderscan/internal/ocr"
	"tenderscan/internal/proxy"
	"tenderscan/internal/scraper"
	"tenderscan/internal/storage"

	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	pgStore, err := storage.NewPostgresStore(cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	redisStore := storage.NewRedisStore(cfg.RedisAddr, time.Duration(cfg.DocCacheTTLHours)*time.Hour)

	// Monitoring and origin-site identities
	metrics := monitoring.NewMetrics()
	agents := proxy.NewManager("https://zakupki.gov.ru/")

	// Ingestion and extraction pipeline
	listingScraper := scraper.New(cfg, agents, metrics, logger)
	locator := contract.NewLocator(cfg, agents, logger)
	recognizer := ocr.NewClient(cfg, metrics, logger)
	extractor := extract.New(cfg, agents, recognizer, logger)
	analyzer := llm.NewAnalyzer(cfg, logger)
	analysis := llm.NewService(locator, extractor, analyzer, redisStore, metrics, logger)

	// Auth and API server
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	server := api.NewServer(cfg, listingScraper, pgStore, redisStore, analysis, tokens, metrics, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
