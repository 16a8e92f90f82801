package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/api"
	"github.com/taoyao-code/collar-tx/internal/app"
	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/gpio"
	"github.com/taoyao-code/collar-tx/internal/httpserver"
	"github.com/taoyao-code/collar-tx/internal/metrics"
)

// Version 构建版本（-ldflags 注入）
var Version = "dev"

// Run 守护进程启动流程
// 输出线与相位时长就绪后才开放命令接口
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	instanceID := app.GenerateInstanceID(cfg.App.Name)
	log = log.With(zap.String("instance_id", instanceID))
	log.Info("starting collar transmitter daemon", zap.String("version", Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = metrics.Handler(reg)
	}
	ready := app.NewReady()

	// ========== 阶段2: 输出线 ==========
	line, err := app.OpenLine(cfg.GPIO, log)
	if err != nil {
		log.Error("output line initialization failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := line.Close(); err != nil {
			log.Warn("close output line", zap.Error(err))
		}
		log.Info("output line released")
	}()
	ready.SetLineReady(true)

	runner, _ := app.NewTransmission(cfg.Timing, line, gpio.NewPreciseSleeper(), appm, log, func(i int, usec uint32) {
		log.Debug("calibration iteration", zap.Int("iteration", i), zap.Uint32("unit_usec", usec))
	})

	// ========== 阶段3: 确定相位时长（覆盖值或校准）==========
	usec, src, err := runner.ResolveTiming(ctx, uint32(cfg.Timing.QuarterPhaseUsec))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown during calibration")
			return nil
		}
		return fmt.Errorf("resolve timing: %w", err)
	}
	ready.SetTimingReady(true)
	log.Info("timing ready", zap.Uint32("unit_usec", usec), zap.String("source", string(src)))

	// ========== 阶段4: HTTP 服务 ==========
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, ready.Ready)
	// 关闭信号取消进行中的发送（在帧边界停止）
	httpSrv.SetBaseContext(ctx)
	healthAgg := app.NewHealthAggregator(ready, cfg.GPIO.Driver, runner.Timing())
	handler := api.NewCommandHandler(runner, ready, cfg.Command, cfg.API.MaxRepeat, uint32(cfg.Timing.QuarterPhaseUsec), appm, log.Named("api"))
	httpSrv.Register(func(r *gin.Engine) {
		api.RegisterCommandRoutes(r, handler, cfg.API, appm, log)
		app.RegisterHealthRoutes(r, healthAgg)
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	// ========== 阶段5: 等待关闭信号 ==========
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, gracefully shutting down...")
	case err := <-errCh:
		log.Error("http server error", zap.Error(err))
		handler.Drain()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}
	log.Info("http server stopped")

	// 等待进行中的发送结束后再释放输出线
	handler.Drain()
	log.Info("command handler drained")
	return nil
}
