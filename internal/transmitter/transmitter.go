package transmitter

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
)

// Transmit 逐个输出电平，每个电平保持 unitUsec 微秒
// 电平先写入输出线再开始等待；输出线故障时立即返回，已发送部分不撤回
func Transmit(levels []bool, unitUsec uint32, sink OutputSink, sleeper Sleeper) error {
	for i, level := range levels {
		if err := sink.SetLevel(level); err != nil {
			return fmt.Errorf("%w: set level at phase %d: %v", ErrOutputLine, i, err)
		}
		sleeper.SleepMicros(unitUsec)
	}
	return nil
}

// PhaseTransmitter 独占输出线的相位发送器
// 同一时刻只允许一次发送（真实命令或校准帧）
type PhaseTransmitter struct {
	mu      sync.Mutex
	sink    OutputSink
	sleeper Sleeper
	logger  *zap.Logger
}

// New 创建发送器
func New(sink OutputSink, sleeper Sleeper, logger *zap.Logger) *PhaseTransmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhaseTransmitter{sink: sink, sleeper: sleeper, logger: logger}
}

// Send 按 p.Repeat 次数连续发送整帧
// 每帧开始前检查 ctx：已取消则不再开始新的一帧，正在发送的帧总会完整发出
// 返回完整发出的帧数
func (t *PhaseTransmitter) Send(ctx context.Context, p collar.CommandParams, unitUsec uint32) (int, error) {
	if unitUsec == 0 {
		return 0, ErrInvalidTimingUnit
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sent := 0
	var w collar.Waveform
	for tx := uint(0); tx < p.Repeat; tx++ {
		// 仅在帧边界检查取消
		if ctx.Err() != nil {
			t.logger.Info("transmission cancelled",
				zap.Int("frames_sent", sent),
				zap.Uint("repeat", p.Repeat))
			break
		}
		collar.EncodeInto(&w, p)
		if err := Transmit(w.Levels(), unitUsec, t.sink, t.sleeper); err != nil {
			t.logger.Error("transmission aborted",
				zap.Int("frames_sent", sent),
				zap.Uint("repeat", p.Repeat),
				zap.Error(err))
			return sent, err
		}
		sent++
	}

	t.logger.Debug("frames sent",
		zap.Uint16("transmitter_id", p.TransmitterID),
		zap.Stringer("mode", p.Mode),
		zap.Int("frames", sent),
		zap.Uint32("unit_usec", unitUsec))
	return sent, nil
}

// SendCalibrationFrame 发送一帧校准空帧（用于测量实际相位时长）
func (t *PhaseTransmitter) SendCalibrationFrame(unitUsec uint32) error {
	if unitUsec == 0 {
		return ErrInvalidTimingUnit
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var w collar.Waveform
	collar.EncodeCalibration(&w)
	return Transmit(w.Levels(), unitUsec, t.sink, t.sleeper)
}
