package prommetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yikakia/visitcounter/core/telemetry"
)

const namespace = "visitcounter"

// Metrics 把 telemetry.Event 映射为 prometheus 指标
//
//	visitcounter_operations_total{op,result,store}
//	visitcounter_operation_duration_seconds{op,store}
//	visitcounter_flushed_keys_total{store,result}
type Metrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	flushedKeys *prometheus.CounterVec
}

// New 创建并注册到 reg，reg 为 nil 时只创建不注册
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Counter operations by op, result and backing store.",
		}, []string{"op", "result", "store"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of counter operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op", "store"}),
		flushedKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_keys_total",
			Help:      "Keys written back by the flusher, by store and result.",
		}, []string{"store", "result"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.operations, m.latency, m.flushedKeys} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Record(_ context.Context, evt *telemetry.Event) error {
	result := string(evt.Result)
	if result == "" {
		result = string(telemetry.ResultFromErr(evt.Error))
	}

	m.operations.WithLabelValues(string(evt.Op), result, evt.StoreName).Inc()
	m.latency.WithLabelValues(string(evt.Op), evt.StoreName).Observe(evt.Latency.Seconds())
	if evt.Op == telemetry.OpBatchSet && evt.Keys > 0 {
		m.flushedKeys.WithLabelValues(evt.StoreName, result).Add(float64(evt.Keys))
	}
	return nil
}

var _ telemetry.Metrics = (*Metrics)(nil)
