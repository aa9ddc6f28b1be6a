package visitcounter

import (
	"errors"
	"fmt"
	"time"

	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/decorator"
	"github.com/yikakia/visitcounter/core/localcache"
	"github.com/yikakia/visitcounter/core/shard"
	"github.com/yikakia/visitcounter/core/telemetry"
	"github.com/yikakia/visitcounter/core/writeback"
)

const (
	DefaultTTL             = 5 * time.Second
	DefaultCleanupInterval = 3 * time.Second
	DefaultStoreTimeout    = 2 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// NewBuilder stores 为固定的节点列表，顺序决定路由结果，进程生命周期内不能变化
func NewBuilder(stores ...counter.Store) (*Builder, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("at least one backing store is required: %w", counter.ErrConfiguration)
	}
	for i, s := range stores {
		if s == nil {
			return nil, fmt.Errorf("backing store #%d is nil: %w", i, counter.ErrConfiguration)
		}
	}

	b := &Builder{
		stores:            stores,
		ttl:               DefaultTTL,
		cleanupInterval:   DefaultCleanupInterval,
		storeTimeout:      DefaultStoreTimeout,
		shutdownTimeout:   DefaultShutdownTimeout,
		incrementAttempts: 1,
		singleFlight:      true,
		metrics:           telemetry.NoopMetrics(),
		logger:            telemetry.SlogLogger(),
		now:               time.Now,
	}
	return b, nil
}

type Builder struct {
	err error

	stores []counter.Store

	ttl             time.Duration
	cleanupInterval time.Duration
	// 0 表示与 ttl 相同
	flushInterval   time.Duration
	storeTimeout    time.Duration
	shutdownTimeout time.Duration

	strategy          shard.Strategy
	writeThrough      bool
	incrementAttempts int
	// enabled by default
	singleFlight bool

	// telemetry.NoopMetrics by default
	metrics telemetry.Metrics
	// telemetry.SlogLogger by default
	logger telemetry.Logger
	now    func() time.Time
}

func (b *Builder) appendErr(err error) {
	b.err = errors.Join(b.err, err)
}

func (b *Builder) Build() (*Service, error) {
	if b.err != nil {
		return nil, fmt.Errorf("builder configs wrong: %w: %w", counter.ErrConfiguration, b.err)
	}

	ob := &telemetry.Observable{
		Metrics: b.metrics,
		Logger:  b.logger,
	}

	wrapped := make([]counter.Store, 0, len(b.stores))
	for _, s := range b.stores {
		wrapped = append(wrapped, b.decorate(s, ob))
	}

	router, err := shard.NewRouter(wrapped, shard.WithStrategy(b.strategy))
	if err != nil {
		return nil, fmt.Errorf("build shard router failed: %w", err)
	}

	flushInterval := b.flushInterval
	if flushInterval == 0 {
		flushInterval = b.ttl
	}

	cache := localcache.New(b.ttl)
	buffer := writeback.NewBuffer()

	s := &Service{
		router:            router,
		cache:             cache,
		buffer:            buffer,
		ob:                ob,
		now:               b.now,
		writeThrough:      b.writeThrough,
		incrementAttempts: b.incrementAttempts,
		evictor: localcache.NewEvictor(localcache.EvictorConfig{
			Cache:      cache,
			Interval:   b.cleanupInterval,
			Now:        b.now,
			Observable: ob,
		}),
		flusher: writeback.New(writeback.Config{
			Buffer:          buffer,
			Router:          router,
			Interval:        flushInterval,
			ShutdownTimeout: b.shutdownTimeout,
			Observable:      ob,
		}),
	}
	return s, nil
}

// decorate 洋葱模型，从外到内 singleflight -> observable -> timeout -> 原始节点
func (b *Builder) decorate(s counter.Store, ob *telemetry.Observable) counter.Store {
	var res counter.Store = decorator.NewTimeoutStore(s, b.storeTimeout)
	res = decorator.NewObservableStore(res, ob)
	if b.singleFlight {
		res = decorator.NewSingleflightStore(res)
	}
	return res
}
