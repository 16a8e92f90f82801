package transmitter

import "errors"

// OutputSink 单路数字输出线
type OutputSink interface {
	SetLevel(high bool) error
}

// Sleeper 微秒级等待（忙等或休眠，由实现决定）
type Sleeper interface {
	SleepMicros(usec uint32)
}

// SleeperFunc 函数适配器
type SleeperFunc func(usec uint32)

func (f SleeperFunc) SleepMicros(usec uint32) { f(usec) }

var (
	// ErrOutputLine 输出线无法驱动（硬件故障），不可恢复
	ErrOutputLine = errors.New("output line fault")
	// ErrInvalidTimingUnit 四分相位时长为0
	ErrInvalidTimingUnit = errors.New("timing unit must be > 0")
)
