package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	FramesSent       *prometheus.CounterVec // labels: mode
	Transmissions    *prometheus.CounterVec // labels: result=ok|cancelled|error
	TransmitDuration prometheus.Histogram
	TimingUnitUsec   prometheus.Gauge       // 当前使用的四分相位时长
	CalibrationRuns  *prometheus.CounterVec // labels: result=ok|error
	APIRateLimited   prometheus.Counter
	APICommandsTotal *prometheus.CounterVec // labels: status
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collar_frames_sent_total",
			Help: "Complete frames driven onto the output line.",
		}, []string{"mode"}),
		Transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collar_transmissions_total",
			Help: "Transmission requests by result.",
		}, []string{"result"}),
		TransmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collar_transmit_duration_seconds",
			Help:    "Wall time of a transmission including all repeats.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		TimingUnitUsec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collar_timing_unit_usec",
			Help: "Frozen quarter-phase duration in microseconds.",
		}),
		CalibrationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collar_calibration_runs_total",
			Help: "Calibration runs by result.",
		}, []string{"result"}),
		APIRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "api_rate_limited_total",
			Help: "Command requests rejected by the rate limiter.",
		}),
		APICommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_commands_total",
			Help: "Command API requests by HTTP status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.FramesSent, m.Transmissions, m.TransmitDuration, m.TimingUnitUsec,
		m.CalibrationRuns, m.APIRateLimited, m.APICommandsTotal)
	return m
}
