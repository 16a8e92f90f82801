package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/collar-tx/internal/health"
)

// NewReady 创建就绪状态
func NewReady() *health.Readiness { return health.New() }

// NewHealthAggregator 创建健康检查聚合器：输出线 + 相位时长
func NewHealthAggregator(ready *health.Readiness, driver string, timing *TimingUnit) *health.Aggregator {
	return health.NewAggregator(
		health.NewLineChecker(ready, driver),
		health.NewTimingChecker(func() (uint32, string, error) {
			usec, src, err := timing.Get()
			return usec, string(src), err
		}),
	)
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
