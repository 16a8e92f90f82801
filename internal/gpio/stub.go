package gpio

import (
	"sync"
)

// StubSink 主机端模拟输出线：记录所有电平，不驱动任何硬件
// 用于 dry-run、无 GPIO 的开发环境与测试
type StubSink struct {
	mu       sync.Mutex
	levels   []bool
	maxKeep  int
	total    uint64
	switches uint64
	last     bool
	closed   bool
}

// NewStubSink 创建模拟输出线，最多保留 maxKeep 个电平（<=0 表示不限）
func NewStubSink(maxKeep int) *StubSink {
	return &StubSink{maxKeep: maxKeep}
}

func (s *StubSink) SetLevel(high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLineClosed
	}
	if s.total > 0 && high != s.last {
		s.switches++
	}
	s.total++
	s.last = high
	if s.maxKeep <= 0 || len(s.levels) < s.maxKeep {
		s.levels = append(s.levels, high)
	}
	return nil
}

// Levels 返回已记录电平的副本
func (s *StubSink) Levels() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.levels))
	copy(out, s.levels)
	return out
}

// Reset 清空记录
func (s *StubSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = s.levels[:0]
	s.total = 0
	s.switches = 0
	s.last = false
}

// StubStats 统计信息
type StubStats struct {
	Levels      uint64 `json:"levels"`
	Transitions uint64 `json:"transitions"`
}

func (s *StubSink) Stats() StubStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StubStats{Levels: s.total, Transitions: s.switches}
}

func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
