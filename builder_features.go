package visitcounter

import (
	"fmt"
	"time"

	"github.com/yikakia/visitcounter/config"
	"github.com/yikakia/visitcounter/core/shard"
	"github.com/yikakia/visitcounter/core/telemetry"
)

// 本地缓存条目的存活时间，需要大于0
func (b *Builder) WithTTL(d time.Duration) *Builder {
	if d <= 0 {
		b.appendErr(fmt.Errorf("ttl must > 0, but got %v", d))
	}
	b.ttl = d
	return b
}

// Evictor 清理周期，需要大于0
func (b *Builder) WithCleanupInterval(d time.Duration) *Builder {
	if d <= 0 {
		b.appendErr(fmt.Errorf("cleanupInterval must > 0, but got %v", d))
	}
	b.cleanupInterval = d
	return b
}

// Flusher 写回周期，需要大于0，不设置时与 ttl 相同
func (b *Builder) WithFlushInterval(d time.Duration) *Builder {
	if d <= 0 {
		b.appendErr(fmt.Errorf("flushInterval must > 0, but got %v", d))
	}
	b.flushInterval = d
	return b
}

// 单次节点调用的超时，超时视为节点不可用
func (b *Builder) WithStoreTimeout(d time.Duration) *Builder {
	if d <= 0 {
		b.appendErr(fmt.Errorf("storeTimeout must > 0, but got %v", d))
	}
	b.storeTimeout = d
	return b
}

// 关闭时最后一次写回的超时
func (b *Builder) WithShutdownTimeout(d time.Duration) *Builder {
	if d <= 0 {
		b.appendErr(fmt.Errorf("shutdownTimeout must > 0, but got %v", d))
	}
	b.shutdownTimeout = d
	return b
}

// 使用 rendezvous 哈希代替 hash mod N
func (b *Builder) WithRendezvousRouting(enable bool) *Builder {
	if enable {
		b.strategy = shard.StrategyRendezvous
	} else {
		b.strategy = shard.StrategyModN
	}
	return b
}

// 开启后 IncrementVisit 同步调用节点的 INCRBY，不经过写回缓冲
// attempts 为节点不可用时的最大尝试次数，重试可能导致重复计数
func (b *Builder) WithWriteThrough(enable bool, attempts int) *Builder {
	if attempts < 1 {
		b.appendErr(fmt.Errorf("increment attempts must >= 1, but got %d", attempts))
	}
	b.writeThrough = enable
	b.incrementAttempts = attempts
	return b
}

// 合并冷 key 的并发回源，默认开启
func (b *Builder) WithSingleFlight(enable bool) *Builder {
	b.singleFlight = enable
	return b
}

func (b *Builder) WithLogger(logger telemetry.Logger) *Builder {
	if logger == nil {
		b.appendErr(fmt.Errorf("logger is nil"))
		return b
	}
	b.logger = logger
	return b
}

func (b *Builder) WithMetrics(metrics telemetry.Metrics) *Builder {
	if metrics == nil {
		b.appendErr(fmt.Errorf("metrics is nil"))
		return b
	}
	b.metrics = metrics
	return b
}

// 注入时钟，测试用
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now == nil {
		b.appendErr(fmt.Errorf("clock is nil"))
		return b
	}
	b.now = now
	return b
}

// WithConfig 应用配置文件/环境变量中的参数，节点列表不在这里处理
func (b *Builder) WithConfig(cfg config.Config) *Builder {
	if err := cfg.Validate(); err != nil {
		b.appendErr(err)
		return b
	}
	b.WithTTL(cfg.TTL()).
		WithCleanupInterval(cfg.CleanupInterval()).
		WithFlushInterval(cfg.FlushInterval()).
		WithStoreTimeout(cfg.StoreTimeout()).
		WithRendezvousRouting(cfg.Routing == config.RoutingRendezvous)
	if cfg.WriteThrough {
		b.WithWriteThrough(true, cfg.IncrementAttempts)
	}
	return b
}
