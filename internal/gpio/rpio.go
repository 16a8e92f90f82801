package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// ErrLineClosed 输出线已释放
var ErrLineClosed = errors.New("gpio line closed")

// RPIOSink 基于 /dev/gpiomem 的树莓派输出线
type RPIOSink struct {
	mu     sync.Mutex
	pin    rpio.Pin
	closed bool
}

// OpenRPIO 映射 GPIO 内存并将引脚设为输出（初始低电平）
// pin 为 BCM 编号
func OpenRPIO(pin int) (*RPIOSink, error) {
	if pin < 0 || pin > 27 {
		return nil, fmt.Errorf("gpio pin %d out of range", pin)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	p := rpio.Pin(pin)
	p.Output()
	p.Low()
	return &RPIOSink{pin: p}, nil
}

// SetLevel 设置输出电平
func (s *RPIOSink) SetLevel(high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLineClosed
	}
	if high {
		s.pin.High()
	} else {
		s.pin.Low()
	}
	return nil
}

// Close 拉低并恢复为输入，释放 GPIO 内存映射
func (s *RPIOSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pin.Low()
	s.pin.Input()
	return rpio.Close()
}
