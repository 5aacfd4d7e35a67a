package api

import (
	"context"
	"net/http"
	"time"

	"recipe-helper/internal/api/handlers/health"
	pantryHandler "recipe-helper/internal/api/handlers/pantry"
	saveHandler "recipe-helper/internal/api/handlers/save"
	"recipe-helper/internal/api/middleware"
	pantryService "recipe-helper/internal/core/pantry"
	"recipe-helper/internal/core/storage"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 30 * time.Second
	// 請求體大小限制 (10MB)
	defaultMaxBodySize = 10 << 20
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Service  *pantryService.Service
	Exporter storage.Exporter
	Queue    *storage.SaveQueue // 可為 nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	// CORS 設置：允許任意來源
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))

	maxBodySize := cfg.Server.MaxBodyBytes
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", common.RequestID(c)),
				zap.Duration("timeout", timeoutDuration),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:    common.ErrCodeRequestTimeout,
				Message: "요청 시간이 초과되었습니다.",
			})
		}
	})

	dedup := middleware.NewDeduplicator(cfg.DedupWindow).Handler()

	// 健康檢查路由
	var queueStatus health.QueueStatusProvider
	var fallback saveHandler.FallbackSource
	if deps.Queue != nil {
		queueStatus = deps.Queue
		fallback = deps.Queue
	}
	healthHandler := health.NewHandler(cfg, deps.Service, queueStatus)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// 前端使用的儲存端點
	saves := saveHandler.NewHandler(deps.Service, deps.Exporter, fallback)
	router.POST(storage.SaveDataPath, dedup, saves.SaveData)
	router.GET(storage.DataFilePath, saves.DataFile)

	// API 路由組
	api := router.Group("/api/v1")
	{
		pantryHandler.NewHandler(deps.Service).Register(api, dedup)

		api.GET("/export", saves.Export)
		api.GET("/export/fallback", saves.ExportFallback)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
