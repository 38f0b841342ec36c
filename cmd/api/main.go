package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"campusbus/internal/auth"
	"campusbus/internal/checkpoint"
	"campusbus/internal/config"
	"campusbus/internal/entitlement"
	"campusbus/internal/fleet"
	"campusbus/internal/handler"
	"campusbus/internal/httpmiddleware"
	"campusbus/internal/keylock"
	"campusbus/internal/ledger"
	"campusbus/internal/queue"
	"campusbus/internal/scan"
	"campusbus/internal/store"
	"campusbus/internal/summary"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App, log *logrus.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var locks keylock.Locker
	if cfg.LockBackend == "memory" {
		locks = keylock.NewMemory()
	} else {
		locks = keylock.NewRedis(redisClient.Locker, 10*time.Second)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	loc := cfg.Location()

	entitlementRepo := entitlement.NewRepository(db.Client)
	checkpointRepo := checkpoint.NewRepository(db.Client)
	ledgerRepo := ledger.NewRepository(db.Client)
	fleetRepo := fleet.NewRepository(db.Client)

	resolver := entitlement.NewResolver(entitlementRepo)
	checkpoints := checkpoint.NewService(checkpointRepo, locks, log)
	committer := scan.NewTxCommitter(db.Client, ledgerRepo, checkpointRepo, entitlementRepo)
	coordinator := scan.NewCoordinator(resolver, fleetRepo, checkpointRepo, committer, locks,
		scan.NewQueuePublisher(q), log, func() time.Time { return time.Now().In(loc) })
	projector := summary.NewProjector(summary.NewRepository(db.Client))
	summaryCache := summary.NewCache(redisClient.Client, 48*time.Hour)

	h := handler.New(checkpoints, coordinator, projector, summaryCache, fleetRepo, log,
		cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL, loc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	public := r.Group("/v1")
	authed := r.Group("/v1", auth.SessionAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	h.Register(public, authed)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server forced shutdown: %v", err)
	}

	log.Info("server exited")
	return nil
}

// securityHeaders hardens browser-facing responses.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
