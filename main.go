// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VA7DBI/todoAPI/auth"
	"github.com/VA7DBI/todoAPI/cache"
	"github.com/VA7DBI/todoAPI/config"
	_ "github.com/VA7DBI/todoAPI/docs"
	"github.com/VA7DBI/todoAPI/logging"
	"github.com/VA7DBI/todoAPI/middleware"
	"github.com/VA7DBI/todoAPI/ratelimit"
	"github.com/VA7DBI/todoAPI/repository"
	"github.com/VA7DBI/todoAPI/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 10 * time.Second

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
)

// @title           Todo API
// @version         1.0
// @description     Per-user todo lists with JWT authentication and rate limiting.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	ctx := context.Background()

	db, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	store := openStore(ctx, cfg, logger)
	defer store.Close()

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to initialize password hasher: %v", err)
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.AccessTokenTTL())
	if err != nil {
		log.Fatalf("Failed to initialize token manager: %v", err)
	}

	api := &API{
		auth: service.NewAuthService(repository.NewUserRepository(db), hasher, tokens,
			service.PasswordPolicyFromConfig(cfg), logger),
		todos: service.NewTodoService(repository.NewTodoRepository(db), store, logger),
		db:    db,
		log:   logger,
	}
	limiter := ratelimit.New(cfg, store, logger)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r, err := setupRouter(cfg, api, limiter)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info(ctx, "starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "forced shutdown", "error", err)
	}
}

// openStore connects to Redis when enabled. An unreachable server is not
// fatal: caching is skipped and the rate limiter fails open until restart.
func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) cache.Store {
	if !cfg.Redis.Enabled {
		logger.Info(ctx, "redis disabled, caching and rate limiting are inactive")
		return cache.NewDisabledStore()
	}

	store, err := cache.NewRedisStore(cfg)
	if err != nil {
		logger.Warn(ctx, "redis unavailable, continuing without it", "error", err)
		return cache.NewDisabledStore()
	}
	return store
}

func setupRouter(cfg *config.Config, api *API, limiter *ratelimit.Limiter) (*gin.Engine, error) {
	r := gin.New()
	// With no trusted proxies, ClientIP is the peer address and
	// X-Forwarded-For is ignored.
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid server.trusted_proxies: %w", err)
	}
	r.Use(gin.Recovery())
	if cfg.Server.Debug {
		r.Use(gin.Logger())
	}
	r.Use(
		middleware.RequestID(),
		middleware.SecurityHeaders(),
		middleware.Metrics(),
		middleware.TrustedHosts(cfg.Server.AllowedHosts),
		middleware.RateLimit(limiter, api.auth),
	)

	// These endpoints remain public
	r.GET("/healthz", api.Healthz)
	r.GET("/readyz", api.Readyz)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	if cfg.Server.Debug {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", api.Register)
	authGroup.POST("/login", api.Login)

	requireAuth := middleware.BearerAuthMiddleware(api.auth)
	authGroup.GET("/me", requireAuth, api.Me)

	todos := v1.Group("/todos", requireAuth)
	todos.GET("", api.ListTodos)
	todos.POST("", api.CreateTodo)
	todos.GET("/:id", api.GetTodo)
	todos.PUT("/:id", api.UpdateTodo)
	todos.DELETE("/:id", api.DeleteTodo)

	return r, nil
}
