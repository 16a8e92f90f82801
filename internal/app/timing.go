package app

import (
	"errors"
	"sync"
)

var (
	// ErrTimingFrozen 相位时长已确定，不允许再次设置
	ErrTimingFrozen = errors.New("timing unit already frozen")
	// ErrTimingUnset 相位时长尚未确定
	ErrTimingUnset = errors.New("timing unit not set")
)

// TimingSource 相位时长来源
type TimingSource string

const (
	TimingOverride   TimingSource = "override"
	TimingCalibrated TimingSource = "calibrated"
)

// TimingUnit 进程级四分相位时长：只能确定一次，之后只读
type TimingUnit struct {
	mu     sync.RWMutex
	usec   uint32
	source TimingSource
	frozen bool
}

// Freeze 设置并冻结时长
func (t *TimingUnit) Freeze(usec uint32, source TimingSource) error {
	if usec == 0 {
		return errors.New("timing unit must be > 0")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return ErrTimingFrozen
	}
	t.usec = usec
	t.source = source
	t.frozen = true
	return nil
}

// Get 返回已冻结的时长
func (t *TimingUnit) Get() (uint32, TimingSource, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.frozen {
		return 0, "", ErrTimingUnset
	}
	return t.usec, t.source, nil
}

// Frozen 是否已确定
func (t *TimingUnit) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}
