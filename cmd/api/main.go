package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"protocol-review-api/config"
	"protocol-review-api/controllers"
	"protocol-review-api/middleware"
	"protocol-review-api/routes"
	"protocol-review-api/services"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile, writer := config.InitLogging(cfg.Log.File)
	if logFile != nil {
		defer logFile.Close()
	}

	logger, err := config.NewLogger(cfg.Log.Level, writer)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatalw("database initialization error", "error", err)
	}

	store := services.NewGormProtocolStore(db)
	reviewers := services.NewReviewerPool(store, cfg.Protocol.ReviewerCacheTTL)

	opts := []services.ProtocolReviewOption{
		services.WithRegistrationDigits(cfg.Protocol.RegistrationDigits),
	}
	if mailer := config.NewMailer(cfg.SMTP); mailer.Enabled() {
		opts = append(opts, services.WithNotifier(services.NewMailNotifier(mailer, store, logger)))
	} else {
		logger.Warnw("smtp not configured, decision notifications disabled")
	}

	workflow := services.NewProtocolReviewService(store, reviewers, logger, opts...)
	timeline := services.NewProtocolTimelineService(store, services.SentinelExclusion(cfg.Timeline.ExcludedValues...), logger)

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	routes.SetupRoutes(router, cfg, db, routes.Handlers{
		Auth:      controllers.NewAuthController(db, cfg.JWT, logger),
		Protocols: controllers.NewProtocolReviewController(workflow, timeline, reviewers, logger),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("server starting", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("server shutdown error", "error", err)
	}
}
