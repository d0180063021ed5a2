package main

import (
	"context"
	"errors"
	"fmt"
	"genarchive/internal/api"
	"genarchive/internal/config"
	"genarchive/internal/model"
	"genarchive/internal/service"
	"genarchive/internal/storage"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		os.Exit(1)
	}

	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(cfg.ParseLogLevel())

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		os.Exit(1)
	}
	if repo == nil {
		logrus.Error("history ledger requires DBType to be set")
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		os.Exit(1)
	}

	generators, err := service.NewGeneratorsFromConfig(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise generation backends")
		os.Exit(1)
	}

	generationSvc := service.NewGenerationService(repo, store, generators, service.Options{
		FetchTimeout:  cfg.FetchTimeout,
		StoreTimeout:  cfg.StoreTimeout,
		LedgerTimeout: cfg.LedgerTimeout,
		MaxImageCount: cfg.MaxImageCount,
		Fetcher:       service.NewHTTPFetcher(&http.Client{Timeout: cfg.FetchTimeout}),
	})
	httpHandler := api.NewHTTPHandler(cfg, repo, store, generationSvc)

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	httpHandler.RegisterRoutes(r)

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logrus.WithFields(logrus.Fields{
		"host":    serverHost,
		"storage": cfg.StorageType,
		"db":      cfg.DBType,
	}).Info("服务器启动")

	// 创建HTTP服务器；生成请求可能持续数分钟，写超时需覆盖后端超时
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 2*cfg.FetchTimeout + cfg.StoreTimeout + time.Minute,
		IdleTimeout:  1200 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("服务器启动失败")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("服务器关闭中")
	httpHandler.CloseSSEClients()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("服务器关闭失败")
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}
