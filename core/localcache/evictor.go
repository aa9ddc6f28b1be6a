package localcache

import (
	"context"
	"time"

	"github.com/yikakia/visitcounter/core/telemetry"
)

// Evictor 周期性清理 Cache 中过期的条目
// 只有一个 running 状态，ctx 取消时退出
type Evictor struct {
	cache    *Cache
	interval time.Duration
	now      func() time.Time
	ob       *telemetry.Observable
}

type EvictorConfig struct {
	Cache    *Cache
	Interval time.Duration
	// 默认 time.Now
	Now        func() time.Time
	Observable *telemetry.Observable
}

func NewEvictor(cfg EvictorConfig) *Evictor {
	e := &Evictor{
		cache:    cfg.Cache,
		interval: cfg.Interval,
		now:      cfg.Now,
		ob:       cfg.Observable,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.ob == nil {
		e.ob = telemetry.DefaultObservable()
	}
	return e
}

func (e *Evictor) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.ob.DebugContext(ctx, "[Evictor.Run] stopped.")
			return
		case <-ticker.C:
			e.SweepOnce(ctx)
		}
	}
}

// SweepOnce 执行一次清理并上报
func (e *Evictor) SweepOnce(ctx context.Context) int {
	start := time.Now()
	removed := e.cache.Sweep(e.now())
	e.ob.Emit(ctx, "Evictor.SweepOnce", &telemetry.Event{
		Op:      telemetry.OpEvict,
		Keys:    removed,
		Latency: time.Since(start),
	})
	if removed > 0 {
		e.ob.DebugContext(ctx, "[Evictor.SweepOnce] evicted stale entries.", "removed", removed, "remaining", e.cache.Len())
	}
	return removed
}
