package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/metrics"
)

// RegisterCommandRoutes 注册命令接口路由
func RegisterCommandRoutes(
	r *gin.Engine,
	handler *CommandHandler,
	cfg cfgpkg.APIConfig,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) {
	if r == nil || handler == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequestTracing())
	if cfg.Auth.Enabled {
		v1.Use(middleware.APIKeyAuth(cfg.Auth, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	v1.GET("/timing", handler.GetTiming)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	var rejected prometheus.Counter
	if appm != nil {
		rejected = appm.APIRateLimited
	}
	v1.POST("/commands", middleware.RateLimit(limiter, rejected), handler.SendCommand)

	logger.Info("command routes registered",
		zap.Float64("rate_per_second", limiter.Stats().PerSecond),
		zap.Int("burst", limiter.Stats().Burst))
}
