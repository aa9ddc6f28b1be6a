package writeback

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/shard"
	"github.com/yikakia/visitcounter/core/telemetry"
)

const defaultShutdownTimeout = 5 * time.Second

type Config struct {
	Buffer   *Buffer
	Router   *shard.Router
	Interval time.Duration
	// ctx 取消后最后一次写回的超时时间，默认 5s
	ShutdownTimeout time.Duration
	Observable      *telemetry.Observable
}

// Flusher 周期性地把 Buffer 批量写回各自路由到的节点
//
// 失败策略：失败节点上的 key 合并回 Buffer，下个周期重试，同时通过 telemetry 上报 FlushError
type Flusher struct {
	buffer          *Buffer
	router          *shard.Router
	interval        time.Duration
	shutdownTimeout time.Duration
	ob              *telemetry.Observable

	// 同一时刻只允许一次写回，保证 inflight 快照唯一
	mu sync.Mutex
}

func New(cfg Config) *Flusher {
	f := &Flusher{
		buffer:          cfg.Buffer,
		router:          cfg.Router,
		interval:        cfg.Interval,
		shutdownTimeout: cfg.ShutdownTimeout,
		ob:              cfg.Observable,
	}
	if f.shutdownTimeout <= 0 {
		f.shutdownTimeout = defaultShutdownTimeout
	}
	if f.ob == nil {
		f.ob = telemetry.DefaultObservable()
	}
	return f
}

// Run 每个 interval 写回一次，ctx 取消后做最后一次写回再返回
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.shutdownTimeout)
			defer cancel()
			err := f.Flush(finalCtx)
			if err != nil {
				f.ob.ErrorContext(finalCtx, "[Flusher.Run] final flush failed, pending counts are lost.",
					"pending", f.buffer.Len(), "err", err.Error())
			}
			return err
		case <-ticker.C:
			// 错误已经在 Flush 中上报，失败的 key 会在下个周期重试
			_ = f.Flush(ctx)
		}
	}
}

// Flush 执行一次写回周期
//
//  1. Swap 取出快照
//  2. 按 Router 分组，每个节点并行一次 BatchSet
//  3. 失败的分组合并回 Buffer
func (f *Flusher) Flush(ctx context.Context) (finalErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.buffer.Swap()
	if len(snapshot) == 0 {
		return nil
	}

	start := time.Now()
	evt := &telemetry.Event{Op: telemetry.OpFlush, Keys: len(snapshot)}
	ctx = telemetry.ContextWithEvent(ctx, evt)
	defer func() {
		evt.Error = finalErr
		evt.Result = telemetry.ResultFromErr(finalErr)
		evt.Latency = time.Since(start)
		f.ob.Emit(ctx, "Flusher.Flush", evt)
	}()

	keys := slices.Sorted(maps.Keys(snapshot))
	groups := f.router.Group(keys)

	p := pool.NewWithResults[*counter.FlushError]().WithMaxGoroutines(len(groups))
	for idx, group := range groups {
		store := f.router.Store(idx)
		values := make(map[string]int64, len(group))
		for _, key := range group {
			values[key] = snapshot[key]
		}
		p.Go(func() *counter.FlushError {
			if err := store.BatchSet(ctx, values); err != nil {
				return &counter.FlushError{StoreName: store.StoreName(), Keys: group, Err: err}
			}
			return nil
		})
	}

	var errs []error
	failed := make(map[string]int64)
	for _, flushErr := range p.Wait() {
		if flushErr == nil {
			continue
		}
		errs = append(errs, flushErr)
		for _, key := range flushErr.Keys {
			failed[key] = snapshot[key]
		}
	}

	requeued := f.buffer.Settle(failed)
	telemetry.AddCustomFields(ctx, map[string]string{
		"stores": strconv.Itoa(len(groups)),
		"failed": strconv.Itoa(len(failed)),
	})
	if len(errs) == 0 {
		f.ob.DebugContext(ctx, "[Flusher.Flush] flushed.", "keys", len(snapshot), "stores", len(groups))
		return nil
	}

	err := errors.Join(errs...)
	f.ob.ErrorContext(ctx, "[Flusher.Flush] write back failed, keys re-queued for next cycle.",
		"failed", len(failed), "requeued", requeued, "superseded", len(failed)-requeued, "err", err.Error())
	return err
}
