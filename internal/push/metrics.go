package push

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics は配信結果のPrometheusメトリクス。
type Metrics struct {
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics はメトリクスを生成して reg に登録する。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushnotify_deliveries_total",
			Help: "Web Push delivery attempts by outcome.",
		},
			[]string{
				"outcome",
			},
		),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pushnotify_delivery_duration_seconds",
			Help:    "Latency of Web Push delivery attempts by outcome.",
			Buckets: prometheus.DefBuckets,
		},
			[]string{
				"outcome",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.deliveries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, o := range Outcomes {
		m.deliveries.WithLabelValues(string(o)).Add(0)
	}
	return m, nil
}

func (m *Metrics) observe(r Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(string(r.Outcome)).Inc()
	m.duration.WithLabelValues(string(r.Outcome)).Observe(elapsed.Seconds())
}
