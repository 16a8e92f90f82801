package health

import "sync/atomic"

// Readiness 就绪状态聚合（输出线、相位时长）
type Readiness struct {
	lineReady   atomic.Bool
	timingReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetLineReady(v bool)   { r.lineReady.Store(v) }
func (r *Readiness) SetTimingReady(v bool) { r.timingReady.Store(v) }

func (r *Readiness) LineReady() bool { return r.lineReady.Load() }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.lineReady.Load() && r.timingReady.Load()
}
