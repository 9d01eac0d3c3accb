package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/handlers"
	"github.com/mmdatafocus/billing_backend/middlewares"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/models/reports"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/mmdatafocus/billing_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func isTrue(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}

// openStore selects the store from STORE_BACKEND (mysql by default).
func openStore(logger *logrus.Logger) (models.Store, func()) {
	if strings.EqualFold(config.StringFromEnv("STORE_BACKEND", "mysql"), "memory") {
		logger.WithFields(logrus.Fields{"field": "store"}).Warn("STORE_BACKEND=memory; data is lost on restart")
		return models.NewMemoryStore(), func() {}
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	// AutoMigrate can block tables; production runs migrations as a separate job
	if !isTrue("SKIP_MIGRATIONS") {
		if err := models.Migrate(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	return models.NewGormStore(db), config.CloseDatabase
}

// openLocker selects the locker from LOCK_BACKEND (redis by default).
func openLocker(ctx context.Context, logger *logrus.Logger) utils.Locker {
	if strings.EqualFold(config.StringFromEnv("LOCK_BACKEND", "redis"), "local") {
		logger.WithFields(logrus.Fields{"field": "locker"}).Warn("LOCK_BACKEND=local; locks only hold within this process")
		wait := time.Duration(config.IntFromEnv("LOCK_WAIT_SECONDS", 10)) * time.Second
		return utils.NewLocalLocker(wait)
	}
	config.ConnectRedisWithRetry(ctx)
	return utils.NewRedisLockerFromEnv()
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// production requires an explicit allowlist, anything else allows all
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowOrigins = []string{}
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.CorrelationHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationHeader)
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	return corsConfig
}

func newRouter(logger *logrus.Logger, store models.Store, engine *workflow.Engine, reporter *reports.Reporter) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(cors.New(corsConfig()))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(store))
	if isTrue("RATE_LIMIT_ENABLED") && config.GetRedisDB() != nil {
		limit := int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		window := time.Duration(config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
		api.Use(middlewares.NewRateLimiter(config.GetRedisDB(), limit, window).Middleware())
	}
	handlers.NewHandler(engine, reporter, logger).Register(api)

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = config.StringFromEnv("PORT", defaultPort)
	}

	logger := config.GetLogger()
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	store, closeStore := openStore(logger)
	defer closeStore()
	locker := openLocker(sigCtx, logger)

	engine := workflow.NewEngine(store, locker, logger)
	reporter := reports.NewReporter(store, logger)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(logger, store, engine, reporter),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"field": "http", "port": port}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	config.CloseRedis()
}

// customErrorLogger logs only requests that recorded errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			ctx := c.Request.Context()
			cid, _ := utils.GetCorrelationIdFromContext(ctx)
			uid, _ := utils.GetUserIdFromContext(ctx)
			tid, _ := utils.GetTenantIdFromContext(ctx)
			logger.WithFields(logrus.Fields{
				"path":           c.Request.URL.Path,
				"status":         c.Writer.Status(),
				"correlation_id": cid,
				"user_id":        uid,
				"tenant_id":      tid,
			}).Warn(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
