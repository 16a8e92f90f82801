package gpio

import (
	"runtime"
	"time"
)

// DefaultSpinThreshold 低于该时长的等待采用忙等
const DefaultSpinThreshold = 100 * time.Microsecond

// PreciseSleeper 混合等待：长等待先休眠到接近截止时间，剩余部分忙等单调时钟
// 与 wiringPi delayMicroseconds 的行为一致
type PreciseSleeper struct {
	SpinThreshold time.Duration
}

// NewPreciseSleeper 创建默认阈值的等待器
func NewPreciseSleeper() *PreciseSleeper {
	return &PreciseSleeper{SpinThreshold: DefaultSpinThreshold}
}

func (s *PreciseSleeper) SleepMicros(usec uint32) {
	if usec == 0 {
		return
	}
	d := time.Duration(usec) * time.Microsecond
	deadline := time.Now().Add(d)
	if d > s.SpinThreshold {
		time.Sleep(d - s.SpinThreshold)
	}
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}

// NoopSleeper 不等待（dry-run 使用）
type NoopSleeper struct{}

func (NoopSleeper) SleepMicros(uint32) {}
