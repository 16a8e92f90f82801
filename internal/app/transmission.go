package app

import (
	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/calibration"
	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/metrics"
	"github.com/taoyao-code/collar-tx/internal/transmitter"
)

// NewTransmission 组装发送器、校准器与发送流程
// onIteration 可选，用于输出校准进度
func NewTransmission(
	cfg cfgpkg.TimingConfig,
	sink transmitter.OutputSink,
	sleeper transmitter.Sleeper,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
	onIteration func(iteration int, unitUsec uint32),
) (*Runner, *transmitter.PhaseTransmitter) {
	tx := transmitter.New(sink, sleeper, logger.Named("transmitter"))

	cal := calibration.New(tx, calibration.NewSystemClock(), calibration.Config{
		TargetRate:  uint32(cfg.TargetRate),
		Iterations:  cfg.Iterations,
		MinUnitUsec: uint32(cfg.MinUnitUsec),
		MaxUnitUsec: uint32(cfg.MaxUnitUsec),
	}, logger.Named("calibration"))
	cal.OnIteration = onIteration

	return NewRunner(tx, cal, appm, logger), tx
}
