package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/featuretoggle/featuretoggle/internal/config"
	"github.com/featuretoggle/featuretoggle/internal/database"
	"github.com/featuretoggle/featuretoggle/internal/storage"
	"github.com/featuretoggle/featuretoggle/internal/toggle/handler"
	"github.com/featuretoggle/featuretoggle/internal/toggle/service"
	"github.com/featuretoggle/featuretoggle/pkg/logger"
	"github.com/featuretoggle/featuretoggle/pkg/metrics"
	"github.com/featuretoggle/featuretoggle/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// deps are the optional runtime dependencies the router reports on.
type deps struct {
	svc      service.Service
	mongo    *database.Holder
	redis    *redis.Client
	exporter handler.Exporter
}

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx := context.Background()
	var d deps

	if cfg.Redis.Host != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := d.redis.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
		defer func() { _ = d.redis.Close() }()
	}

	if cfg.MongoDB.URI != "" {
		d.mongo = database.NewHolder(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout)
		// Failure here is not fatal; the first request retries the connection.
		if err := d.mongo.Init(ctx); err != nil {
			logger.Warnf("could not connect to MongoDB at startup: %v", err)
		}
		defer func() { _ = d.mongo.Close(context.Background()) }()
		d.svc = service.NewMongoService(d.mongo)
	} else {
		logger.Warn("MONGODB_URI not set, using in-memory store")
		d.svc = service.NewMemoryService()
	}

	if cfg.MinIO.Endpoint != "" {
		st, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("snapshot export disabled: %v", err)
		} else {
			d.exporter = st
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := newRouter(cfg, d)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting feature toggle service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Info("server stopped")
}

func newRouter(cfg *config.Config, d deps) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CORS(cfg.Server.AllowOrigin))
	r.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(d.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when every configured dependency answers
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		status := map[string]bool{}
		if d.mongo != nil {
			status["mongodb"] = d.mongo.Ping(ctx) == nil
			ready = ready && status["mongodb"]
		} else {
			status["mongodb"] = true
		}
		if d.redis != nil && cfg.RateLimit.UseRedis {
			status["redis"] = d.redis.Ping(ctx).Err() == nil
			ready = ready && status["redis"]
		} else {
			status["redis"] = true
		}
		status["export"] = d.exporter != nil

		body := gin.H{"status": "ready", "deps": status, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	handler.NewHandler(d.svc, d.exporter).Register(r)
	handler.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
