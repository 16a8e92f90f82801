// Package calibration 自动校准四分相位时长
//
// 发送固定长度的校准帧并用单调时钟测量实际耗时，按比例修正请求的等待时长，
// 使实际相位速率收敛到目标速率（默认 4000 相位/秒）。
package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
)

const (
	DefaultTargetRate = 4000 // 四分相位/秒，即 1kHz 位速率
	DefaultIterations = 10
)

// ErrCalibrationDiverged 校准结果超出合理范围
var ErrCalibrationDiverged = errors.New("calibration result out of bounds")

// Clock 单调时钟
type Clock interface {
	Now() time.Duration
}

// SystemClock 基于 time.Now 单调读数的时钟
type SystemClock struct {
	origin time.Time
}

func NewSystemClock() *SystemClock { return &SystemClock{origin: time.Now()} }

func (c *SystemClock) Now() time.Duration { return time.Since(c.origin) }

// FrameSender 发送一帧校准空帧
type FrameSender interface {
	SendCalibrationFrame(unitUsec uint32) error
}

// Config 校准参数
type Config struct {
	TargetRate  uint32 // 目标四分相位速率（每秒）
	Iterations  int
	MinUnitUsec uint32 // 0 表示不检查下限
	MaxUnitUsec uint32 // 0 表示不检查上限
}

// Calibrator 比例修正校准器
type Calibrator struct {
	sender FrameSender
	clock  Clock
	cfg    Config
	logger *zap.Logger

	// OnIteration 每轮测量前回调当前时长（可选）
	OnIteration func(iteration int, unitUsec uint32)
}

// New 创建校准器，未设置的参数取默认值
func New(sender FrameSender, clock Clock, cfg Config, logger *zap.Logger) *Calibrator {
	if cfg.TargetRate == 0 {
		cfg.TargetRate = DefaultTargetRate
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calibrator{sender: sender, clock: clock, cfg: cfg, logger: logger}
}

// NominalUnitUsec 目标速率对应的名义相位时长（同时作为初始值）
func (c *Calibrator) NominalUnitUsec() uint32 {
	return 1_000_000 / c.cfg.TargetRate
}

// Calibrate 执行固定轮数的校准，返回最终相位时长
// 每轮之间检查 ctx，不会中断正在发送的校准帧
func (c *Calibrator) Calibrate(ctx context.Context) (uint32, error) {
	nominal := c.NominalUnitUsec()
	unit := nominal

	for i := 0; i < c.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if c.OnIteration != nil {
			c.OnIteration(i, unit)
		}

		start := c.clock.Now()
		if err := c.sender.SendCalibrationFrame(unit); err != nil {
			return 0, fmt.Errorf("calibration iteration %d: %w", i, err)
		}
		elapsed := c.clock.Now() - start

		measured := measuredUnitUsec(elapsed)
		next := correct(nominal, unit, measured)

		c.logger.Debug("calibration step",
			zap.Int("iteration", i),
			zap.Uint32("unit_usec", unit),
			zap.Uint64("measured_usec", measured),
			zap.Uint32("next_usec", next),
			zap.Duration("elapsed", elapsed))
		unit = next
	}

	if (c.cfg.MinUnitUsec > 0 && unit < c.cfg.MinUnitUsec) ||
		(c.cfg.MaxUnitUsec > 0 && unit > c.cfg.MaxUnitUsec) {
		return unit, fmt.Errorf("%w: %dus not in [%d, %d]",
			ErrCalibrationDiverged, unit, c.cfg.MinUnitUsec, c.cfg.MaxUnitUsec)
	}

	c.logger.Info("calibration done",
		zap.Uint32("unit_usec", unit),
		zap.Uint32("nominal_usec", nominal),
		zap.Int("iterations", c.cfg.Iterations))
	return unit, nil
}

// measuredUnitUsec 实测单个相位的平均时长（整数微秒）
func measuredUnitUsec(elapsed time.Duration) uint64 {
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed.Nanoseconds()) / collar.FrameQuarterPhases / 1000
}

// correct 比例修正：unit' = nominal * unit / measured
// measured 为0（时钟分辨率不足）时按1计算；结果限制在 [1, MaxUint32]
func correct(nominal, unit uint32, measured uint64) uint32 {
	if measured == 0 {
		measured = 1
	}
	next := uint64(nominal) * uint64(unit) / measured
	switch {
	case next == 0:
		return 1
	case next > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(next)
}
