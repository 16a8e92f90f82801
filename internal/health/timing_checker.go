package health

import (
	"context"
	"time"
)

// TimingFunc 读取当前相位时长（微秒）与来源
type TimingFunc func() (usec uint32, source string, err error)

// TimingChecker 相位时长检查器
type TimingChecker struct {
	get TimingFunc
}

func NewTimingChecker(get TimingFunc) *TimingChecker {
	return &TimingChecker{get: get}
}

func (c *TimingChecker) Name() string { return "timing" }

func (c *TimingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	usec, source, err := c.get()
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{
			"unit_usec": usec,
			"source":    source,
		},
		Latency: time.Since(start),
	}
}
