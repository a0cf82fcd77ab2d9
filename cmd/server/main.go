package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "carforum/internal/domain/assistant"
	_ "carforum/internal/domain/common"
	_ "carforum/internal/domain/forum"
	_ "carforum/internal/domain/news"
	_ "carforum/internal/domain/notification"
	_ "carforum/internal/domain/user"

	forumModel "carforum/internal/domain/forum/model"
	notificationModel "carforum/internal/domain/notification/model"
	userModel "carforum/internal/domain/user/model"
	"carforum/internal/pkg/config"
	"carforum/internal/pkg/middleware"
	"carforum/internal/pkg/registry"
	"carforum/pkg/cache"
	"carforum/pkg/database"
	"carforum/pkg/logger"
	"carforum/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// @title Car Forum API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	config.LoadConfig()
	cfg := &config.GlobalConfig

	if err := logger.InitLogger(cfg.App.Debug); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
	if err != nil {
		logger.Log.Fatal("Database init failed", zap.Error(err))
	}
	// 生产环境使用 cmd/migrate 执行 SQL 迁移
	if cfg.App.Env == "dev" {
		if err := db.AutoMigrate(
			&userModel.User{},
			&userModel.LoginHistory{},
			&forumModel.Post{},
			&forumModel.Reply{},
			&forumModel.Vote{},
			&notificationModel.Notification{},
		); err != nil {
			logger.Log.Fatal("AutoMigrate failed", zap.Error(err))
		}
	}

	var (
		rdb   *redis.Client
		store cache.CacheService
	)
	rdb, err = database.InitRedis(cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
		store = cache.NewMemoryCache()
	} else {
		store = cache.NewRedisCache(rdb, "carforum:")
	}

	metrics.InitMetrics()
	collector := metrics.GetGlobalCollector()

	poolMonitor, err := database.NewPoolMonitor(db, prometheus.DefaultRegisterer, 30*time.Second)
	if err != nil {
		logger.Log.Fatal("Pool monitor init failed", zap.Error(err))
	}
	poolMonitor.Start()
	defer poolMonitor.Stop()

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"},
		ExposeHeaders:    []string{"X-Trace-ID"},
		AllowCredentials: !containsWildcard(cfg.Server.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware(collector))
	r.Use(middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)))

	moduleCtx := &registry.ModuleContext{
		DB:      db,
		Redis:   rdb,
		Cache:   store,
		Metrics: collector,
		Config:  cfg,
		Router:  r,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("Module init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	// 请求处理完毕后再排空推送队列等后台任务
	moduleCtx.Shutdown()
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Log.Info("Server exited")
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
