// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor 聚合服务器运行指标。prometheus 指标暴露在 /metrics，
// 另有少量 expvar 挂在 /debug/vars 便于快速排查。
type Monitor struct {
	onlinePlayers   prometheus.Gauge
	activeRooms     prometheus.Gauge
	messagesTotal   prometheus.Counter
	ticksTotal      prometheus.Counter
	matchesFinished prometheus.Counter
	messageLatency  prometheus.Histogram

	startTime time.Time
	messages  int64
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		startTime: time.Now(),
		onlinePlayers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		activeRooms: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		messagesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of client messages received",
		}),
		ticksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of simulation ticks advanced",
		}),
		matchesFinished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Total number of matches recorded at cleanup",
		}),
		messageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
}

// StartServer 在独立的 mux 上启动指标服务，避免和游戏端口混在一起
func (m *Monitor) StartServer(addr string) {
	expvar.Publish("uptime_seconds", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	expvar.Publish("messages_received", expvar.Func(func() interface{} {
		return atomic.LoadInt64(&m.messages)
	}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) IncOnlinePlayers() {
	m.onlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.onlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.activeRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.messagesTotal.Inc()
	atomic.AddInt64(&m.messages, 1)
}

func (m *Monitor) AddTicks(n int64) {
	m.ticksTotal.Add(float64(n))
}

func (m *Monitor) IncMatchesFinished() {
	m.matchesFinished.Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.messageLatency.Observe(duration.Seconds())
}
