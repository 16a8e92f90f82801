package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/metrics"
	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
)

// FrameSender 按重复次数发送命令帧（*transmitter.PhaseTransmitter）
type FrameSender interface {
	Send(ctx context.Context, p collar.CommandParams, unitUsec uint32) (int, error)
}

// Calibrator 校准相位时长（*calibration.Calibrator）
type Calibrator interface {
	Calibrate(ctx context.Context) (uint32, error)
}

// Result 一次发送的结果
type Result struct {
	TimingUnitUsec uint32        `json:"timing_unit_usec"`
	TimingSource   TimingSource  `json:"timing_source"`
	FramesSent     int           `json:"frames_sent"`
	Cancelled      bool          `json:"cancelled"`
	Duration       time.Duration `json:"duration"`
}

// Runner 发送流程编排：确定相位时长（覆盖值或校准，进程内只做一次）→ 发送
type Runner struct {
	sender     FrameSender
	calibrator Calibrator
	timing     *TimingUnit
	metrics    *metrics.AppMetrics
	logger     *zap.Logger

	resolveMu sync.Mutex
}

// NewRunner 构造发送流程；appm 可为 nil
func NewRunner(sender FrameSender, calibrator Calibrator, appm *metrics.AppMetrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		sender:     sender,
		calibrator: calibrator,
		timing:     &TimingUnit{},
		metrics:    appm,
		logger:     logger,
	}
}

// Timing 返回进程级相位时长
func (r *Runner) Timing() *TimingUnit { return r.timing }

// ResolveTiming 确定相位时长：overrideUsec 非0时直接使用，否则执行校准
// 已确定后直接返回冻结值
func (r *Runner) ResolveTiming(ctx context.Context, overrideUsec uint32) (uint32, TimingSource, error) {
	r.resolveMu.Lock()
	defer r.resolveMu.Unlock()

	if usec, src, err := r.timing.Get(); err == nil {
		if overrideUsec != 0 && overrideUsec != usec {
			r.logger.Warn("timing unit already frozen, override ignored",
				zap.Uint32("frozen_usec", usec),
				zap.Uint32("override_usec", overrideUsec))
		}
		return usec, src, nil
	}

	usec, src := overrideUsec, TimingOverride
	if usec == 0 {
		if r.calibrator == nil {
			return 0, "", errors.New("no timing override and no calibrator")
		}
		r.logger.Info("calibrating timing unit")
		calibrated, err := r.calibrator.Calibrate(ctx)
		if err != nil {
			r.countCalibration("error")
			return 0, "", fmt.Errorf("calibrate: %w", err)
		}
		r.countCalibration("ok")
		usec, src = calibrated, TimingCalibrated
	}

	if err := r.timing.Freeze(usec, src); err != nil {
		return 0, "", err
	}
	if r.metrics != nil {
		r.metrics.TimingUnitUsec.Set(float64(usec))
	}
	r.logger.Info("timing unit frozen", zap.Uint32("unit_usec", usec), zap.String("source", string(src)))
	return usec, src, nil
}

// Run 发送一条命令（对应 runTransmission）
// 输出线故障为致命错误，直接返回；取消只在帧边界生效
func (r *Runner) Run(ctx context.Context, p collar.CommandParams, overrideUsec uint32) (Result, error) {
	usec, src, err := r.ResolveTiming(ctx, overrideUsec)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	sent, err := r.sender.Send(ctx, p, usec)
	res := Result{
		TimingUnitUsec: usec,
		TimingSource:   src,
		FramesSent:     sent,
		Cancelled:      err == nil && uint(sent) < p.Repeat,
		Duration:       time.Since(start),
	}

	if r.metrics != nil {
		r.metrics.FramesSent.WithLabelValues(p.Mode.String()).Add(float64(sent))
		r.metrics.TransmitDuration.Observe(res.Duration.Seconds())
		switch {
		case err != nil:
			r.metrics.Transmissions.WithLabelValues("error").Inc()
		case res.Cancelled:
			r.metrics.Transmissions.WithLabelValues("cancelled").Inc()
		default:
			r.metrics.Transmissions.WithLabelValues("ok").Inc()
		}
	}

	if err != nil {
		r.logger.Error("transmission failed",
			zap.Uint16("transmitter_id", p.TransmitterID),
			zap.Int("frames_sent", sent),
			zap.Error(err))
		return res, fmt.Errorf("transmit: %w", err)
	}

	r.logger.Info("transmission complete",
		zap.Uint16("transmitter_id", p.TransmitterID),
		zap.Stringer("channel", p.Channel),
		zap.Stringer("mode", p.Mode),
		zap.Uint("strength", p.Strength),
		zap.Int("frames_sent", sent),
		zap.Bool("cancelled", res.Cancelled),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) countCalibration(result string) {
	if r.metrics != nil {
		r.metrics.CalibrationRuns.WithLabelValues(result).Inc()
	}
}
