package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator 健康检查聚合器
// 检查项均为进程内状态读取，顺序执行
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator 创建聚合器
func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{checkers: checkers}
}

// AddChecker 添加检查器
func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// CheckAll 执行所有健康检查
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	results := make(map[string]CheckResult, len(a.checkers))
	for _, c := range a.checkers {
		results[c.Name()] = c.Check(ctx)
	}
	return results
}

// Overall 根据各项结果计算总体状态：任一 Unhealthy 即 Unhealthy，任一 Degraded 即 Degraded
func Overall(results map[string]CheckResult) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// Report 生成健康报告
func (a *Aggregator) Report(ctx context.Context) HealthReport {
	checks := a.CheckAll(ctx)
	return HealthReport{
		Status:    Overall(checks),
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthReport 健康报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}
