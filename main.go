package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bookmind-gateway/internal/api"
	"bookmind-gateway/internal/client"
	"bookmind-gateway/internal/config"
	"bookmind-gateway/internal/flow"
	"bookmind-gateway/internal/session"
	"bookmind-gateway/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the config file")
	flag.Parse()

	// Local development keeps the backend URL in a .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	backend := client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	policy := flow.UploadPolicy{
		MaxBytes:          cfg.Upload.MaxBytes,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}
	sessions := session.NewStore(cfg.Session.TTL, policy)

	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	sessions.StartCleaner(cleanCtx, cfg.Session.CleanupInterval)

	handler := api.NewHandler(backend, sessions)
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("gateway listening on %s (backend %s)", cfg.Server.Addr, cfg.Backend.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func setupRouter(cfg *config.Config, handler *api.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: cfg.CORS.AllowedHeaders,
		MaxAge:       time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	handler.RegisterRoutes(router)
	return router
}
