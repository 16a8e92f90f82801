package health

import "testing"

func TestReadiness(t *testing.T) {
	r := New()
	if r.Ready() {
		t.Fatal("初始状态不应就绪")
	}
	r.SetLineReady(true)
	if r.Ready() {
		t.Fatal("相位时长未确定时不应就绪")
	}
	r.SetTimingReady(true)
	if !r.Ready() {
		t.Fatal("应就绪")
	}
	r.SetLineReady(false)
	if r.Ready() || r.LineReady() {
		t.Fatal("输出线故障后不应就绪")
	}
}
