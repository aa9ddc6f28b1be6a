package decorator

import (
	"context"
	"time"

	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/telemetry"
)

func NewObservableStore(store counter.Store, ob *telemetry.Observable) *ObservableStore {
	return &ObservableStore{
		ob:    ob,
		store: store,
	}
}

// ObservableStore 为每次节点调用生成 telemetry.Event 并上报
type ObservableStore struct {
	ob    *telemetry.Observable
	store counter.Store
}

func (o *ObservableStore) initCtx(ctx context.Context, op telemetry.Op, keys int) (context.Context, *telemetry.Event) {
	evt := &telemetry.Event{
		Op:        op,
		StoreName: o.store.StoreName(),
		Keys:      keys,
	}
	return telemetry.ContextWithEvent(ctx, evt), evt
}

func (o *ObservableStore) finish(ctx context.Context, where string, evt *telemetry.Event, start time.Time, err error) {
	evt.Error = err
	evt.Latency = time.Since(start)
	evt.Result = telemetry.ResultFromErr(err)
	o.ob.Emit(ctx, where, evt)
}

func (o *ObservableStore) Increment(ctx context.Context, key string, amount int64) (_ int64, finalErr error) {
	start := time.Now()
	ctx, evt := o.initCtx(ctx, telemetry.OpIncrement, 1)
	defer func() { o.finish(ctx, "ObservableStore.Increment", evt, start, finalErr) }()

	return o.store.Increment(ctx, key, amount)
}

func (o *ObservableStore) Get(ctx context.Context, key string) (_ int64, finalErr error) {
	start := time.Now()
	ctx, evt := o.initCtx(ctx, telemetry.OpGet, 1)
	defer func() { o.finish(ctx, "ObservableStore.Get", evt, start, finalErr) }()

	return o.store.Get(ctx, key)
}

func (o *ObservableStore) BatchSet(ctx context.Context, values map[string]int64) (finalErr error) {
	start := time.Now()
	ctx, evt := o.initCtx(ctx, telemetry.OpBatchSet, len(values))
	defer func() { o.finish(ctx, "ObservableStore.BatchSet", evt, start, finalErr) }()

	return o.store.BatchSet(ctx, values)
}

func (o *ObservableStore) StoreName() string {
	return o.store.StoreName()
}

func (o *ObservableStore) Close() error {
	return o.store.Close()
}

var _ counter.Store = (*ObservableStore)(nil)
