package health

import (
	"context"
	"time"
)

// LineChecker 输出线检查器：发生硬件故障后输出线不再可用
type LineChecker struct {
	readiness *Readiness
	driver    string
}

func NewLineChecker(r *Readiness, driver string) *LineChecker {
	return &LineChecker{readiness: r, driver: driver}
}

func (c *LineChecker) Name() string { return "output_line" }

func (c *LineChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{"driver": c.driver},
	}
	if !c.readiness.LineReady() {
		res.Status = StatusUnhealthy
		res.Message = "output line unavailable"
	}
	res.Latency = time.Since(start)
	return res
}
