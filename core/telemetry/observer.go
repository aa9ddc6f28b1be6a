package telemetry

import "context"

type Observable struct {
	Metrics
	Logger
}

func DefaultObservable() *Observable {
	return &Observable{
		Metrics: NoopMetrics(),
		Logger:  SlogLogger(),
	}
}

// Emit 上报 Event，上报失败只记日志，不影响调用方
func (o *Observable) Emit(ctx context.Context, where string, evt *Event) {
	if err := o.Metrics.Record(ctx, evt); err != nil {
		o.Logger.ErrorContext(ctx, "["+where+"] Record Metrics Failed.", "op", string(evt.Op), "err", err.Error())
	}
}
