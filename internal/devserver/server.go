// Package devserver is a local stand-in for the DropVault backend. It
// implements the auth wire contract the CLI and SDK talk to so the
// client side can be exercised without the production service. Emails
// are not actually sent; verification links are logged instead.
package devserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dropvault-dev/dropvault/internal/auth"
	"github.com/dropvault-dev/dropvault/internal/config"
	"github.com/dropvault-dev/dropvault/internal/models"
)

// verificationTokenTTL matches the "link expires in 24 hours" promise
// the pending page makes.
const verificationTokenTTL = 24 * time.Hour

// Server represents the dev HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	cron      *cron.Cron
}

// New creates a new dev server instance
func New(cfg *config.Config, zlog zerolog.Logger) (*Server, error) {
	db, err := initDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	auth.InitializeJWT(cfg.Auth.JWTSecret)

	validate := validator.New()

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: validate,
		cron:      cron.New(),
	}

	if cfg.SeedFile != "" {
		if err := server.seedUsers(cfg.SeedFile); err != nil {
			return nil, fmt.Errorf("failed to seed users: %w", err)
		}
	}

	// Expired, unconsumed verification tokens accumulate during local
	// testing; sweep them hourly.
	if _, err := server.cron.AddFunc("@every 1h", server.purgeExpiredTokens); err != nil {
		return nil, fmt.Errorf("failed to schedule token purge: %w", err)
	}

	server.setupRouter()

	return server, nil
}

// initDatabase opens the sqlite database
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: gormlogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormlogger.Config{
				LogLevel:                  gormlogger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public endpoints
	s.router.POST("/api/login/", s.login)
	s.router.POST("/api/auth/google/", s.loginWithGoogle)
	s.router.POST("/api/register/", s.register)
	s.router.GET("/api/verify-email-token/", s.verifyEmailToken)
	s.router.POST("/api/resend-verification/", s.resendVerification)

	// Token-authenticated endpoints
	authed := s.router.Group("/api")
	authed.Use(TokenAuthMiddleware(s.db, s.logger))
	{
		authed.POST("/logout/", s.logout)
		authed.GET("/auth/check/", s.checkAuth)
		authed.GET("/profile/", s.getProfile)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "dropvault-devserver",
	})
}

// purgeExpiredTokens deletes expired, unconsumed verification tokens
func (s *Server) purgeExpiredTokens() {
	result := s.db.
		Where("expires_at < ? AND consumed_at IS NULL", time.Now()).
		Delete(&models.VerificationToken{})
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to purge expired verification tokens")
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("count", result.RowsAffected).Msg("Purged expired verification tokens")
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.cron.Start()

	go func() {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
