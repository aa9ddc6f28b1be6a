package telemetry

import (
	"context"
)

// Metrics 记录一次操作的 Event，实现需要并发安全
type Metrics interface {
	Record(context.Context, *Event) error
}

func NoopMetrics() Metrics {
	return &noopMetrics{}
}

type noopMetrics struct{}

func (n *noopMetrics) Record(ctx context.Context, event *Event) error { return nil }

// MetricsFunc 让普通函数满足 Metrics，测试里用来收集 Event
type MetricsFunc func(context.Context, *Event) error

func (f MetricsFunc) Record(ctx context.Context, evt *Event) error {
	return f(ctx, evt)
}
