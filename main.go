package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/handler"
	"github.com/salocin93/freesign-sub000/middleware"
	"github.com/salocin93/freesign-sub000/pkg/logger"
	"github.com/salocin93/freesign-sub000/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	storageSvc, err := service.NewStorageService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize storage service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := storageSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure storage bucket", "error", err)
		os.Exit(1)
	}

	renderSvc := service.NewRenderService(&cfg.Renderer)
	elementStore := service.NewElementStore()

	// Initialize stores with config
	service.InitDocumentStore(&cfg.Store)
	service.InitSessionStore(&cfg.Store)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler(storageSvc, renderSvc, elementStore, &cfg.Auth)
	sessionHandler := handler.NewSessionHandler(renderSvc, elementStore, &cfg.Profiles)
	callbackHandler := handler.NewCallbackHandler(renderSvc)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/render/callback", callbackHandler.HandleCallback)
	}

	// Account-only routes: document preparation
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/documents", documentHandler.Upload)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.GET("/documents/:id/status", documentHandler.GetStatus)
		protected.DELETE("/documents/:id", documentHandler.Delete)
		protected.GET("/documents/:id/recipients", documentHandler.ListRecipients)
		protected.POST("/documents/:id/recipients", documentHandler.AddRecipient)
		protected.POST("/documents/:id/recipients/:rid/link", documentHandler.CreateSigningLink)
		protected.GET("/documents/:id/elements", documentHandler.ListElements)
	}

	// Viewer routes: account tokens and recipient signing tokens
	viewer := api.Group("/")
	viewer.Use(middleware.ViewerAuth(&cfg.Auth))
	{
		viewer.POST("/documents/:id/sessions", sessionHandler.CreateSession)
		viewer.POST("/documents/:id/elements/:eid/value", documentHandler.SetElementValue)
		viewer.GET("/sessions/:id", sessionHandler.GetSession)
		viewer.POST("/sessions/:id/events", sessionHandler.PostEvent)
		viewer.DELETE("/sessions/:id", sessionHandler.DeleteSession)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
