package visitcounter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/localcache"
	"github.com/yikakia/visitcounter/core/shard"
	"github.com/yikakia/visitcounter/core/telemetry"
	"github.com/yikakia/visitcounter/core/writeback"
	"github.com/yikakia/visitcounter/internal"
)

var (
	ErrServiceClosed  = errors.New("visit counter service closed")
	ErrAlreadyRunning = errors.New("visit counter service already running")

	errNeedsSeed = errors.New("counter not known locally, seed from store")
)

// Service 访问计数服务
//
// 写入先落到本地缓存和写回缓冲，由 Flusher 周期性批量写回路由到的节点；
// 读取优先命中本地缓存，未命中时回源并回填。
// 本地状态只属于当前实例，多实例之间不做一致性保证。
type Service struct {
	router  *shard.Router
	cache   *localcache.Cache
	buffer  *writeback.Buffer
	evictor *localcache.Evictor
	flusher *writeback.Flusher
	ob      *telemetry.Observable
	now     func() time.Time

	writeThrough      bool
	incrementAttempts int

	// 串行化缓存与缓冲的读-改-写，临界区内没有网络调用
	mu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
}

// IncrementVisit 页面访问量加一
//
// 基数依次取 写回缓冲 > 本地缓存 > 节点上的持久值。
// 只有冷 key 需要读一次节点，且并发的冷读会被合并；写入节点由 Flusher 异步完成。
func (s *Service) IncrementVisit(ctx context.Context, pageID string) (finalErr error) {
	start := time.Now()
	evt := &telemetry.Event{Op: telemetry.OpVisit, Keys: 1}
	ctx = telemetry.ContextWithEvent(ctx, evt)
	defer func() {
		evt.Error = finalErr
		evt.Latency = time.Since(start)
		evt.Result = telemetry.ResultFromErr(finalErr)
		s.ob.Emit(ctx, "Service.IncrementVisit", evt)
	}()

	if s.closed.Load() {
		return ErrServiceClosed
	}

	key := counter.Key(pageID)
	if s.writeThrough {
		return s.incrementThrough(ctx, key)
	}

	// 冷热判断只在锁内做，锁外判断的结果可能已被 Evictor 或 Flusher 改变
	gen, err := s.bump(key, nil)
	for errors.Is(err, errNeedsSeed) {
		floor, getErr := s.router.Route(key).Get(ctx, key)
		if getErr != nil {
			return fmt.Errorf("seed counter %s: %w", key, getErr)
		}
		gen, err = s.bump(key, &seed{floor: floor, generation: gen})
	}
	return err
}

// GetVisitCount 返回页面访问量以及数据来源
func (s *Service) GetVisitCount(ctx context.Context, pageID string) (_ int64, src counter.Source, finalErr error) {
	start := time.Now()
	evt := &telemetry.Event{Op: telemetry.OpVisitCount, Keys: 1}
	ctx = telemetry.ContextWithEvent(ctx, evt)
	defer func() {
		evt.Error = finalErr
		evt.Latency = time.Since(start)
		evt.Result = internal.ResultFromSource(src, finalErr)
		if src != "" {
			telemetry.AddCustomFields(ctx, map[string]string{"served_via": string(src)})
		}
		s.ob.Emit(ctx, "Service.GetVisitCount", evt)
	}()

	key := counter.Key(pageID)
	if v, _, ok := s.cache.Get(key, s.now()); ok {
		return v, counter.SourceInMemory, nil
	}

	stored, err := s.router.Route(key).Get(ctx, key)
	if err != nil {
		if errors.Is(err, counter.ErrStoreUnavailable) {
			// 节点不可用时，还未写回的值比报错更有用
			if v, ok := s.buffer.Lookup(key); ok {
				s.ob.WarnContext(ctx, "[Service.GetVisitCount] store unavailable, serving buffered value.",
					"key", key, "err", err.Error())
				return v, counter.SourceInMemory, nil
			}
		}
		return 0, "", fmt.Errorf("read counter %s: %w", key, err)
	}

	return s.fill(key, stored), counter.SourceStore, nil
}

// Flush 立即执行一次写回
func (s *Service) Flush(ctx context.Context) error {
	return s.flusher.Flush(ctx)
}

// Run 启动 Evictor 和 Flusher，阻塞到 ctx 取消或 Close 被调用
// 返回最后一次写回的错误；退出后在 Close 之前可以再次 Run
func (s *Service) Run(ctx context.Context) error {
	s.runMu.Lock()
	if s.closed.Load() {
		s.runMu.Unlock()
		return ErrServiceClosed
	}
	if s.cancel != nil {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.runMu.Unlock()

	defer func() {
		cancel()
		s.runMu.Lock()
		s.cancel = nil
		s.done = nil
		s.runMu.Unlock()
		close(done)
	}()

	var flushErr error
	wg := conc.NewWaitGroup()
	// 任意一个任务退出都让另一个一起退出
	wg.Go(func() {
		defer cancel()
		s.evictor.Run(ctx)
	})
	wg.Go(func() {
		defer cancel()
		flushErr = s.flusher.Run(ctx)
	})

	var err error
	if r := wg.WaitAndRecover(); r != nil {
		s.ob.ErrorContext(ctx, "[Service.Run] background task panicked.", "panic", r.String())
		err = r.AsError()
	}
	return errors.Join(err, flushErr)
}

// Close 停止后台任务，等待 Run 退出后再同步写回一次，重复调用直接返回 nil
// Run 自身的错误由 Run 返回，这里只返回最后这次写回的错误
func (s *Service) Close(ctx context.Context) error {
	s.runMu.Lock()
	s.mu.Lock()
	already := s.closed.Swap(true)
	s.mu.Unlock()
	if already {
		s.runMu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()

	if cancel == nil {
		return s.flusher.Flush(ctx)
	}

	cancel()
	select {
	case <-done:
		// 补写 Run 最后一次写回失败后重排的 key
		return s.flusher.Flush(ctx)
	case <-ctx.Done():
		return fmt.Errorf("wait for final flush: %w", ctx.Err())
	}
}

// lookup 返回本实例已知的当前值，写回缓冲优先
func (s *Service) lookup(key string) (int64, bool) {
	if v, ok := s.buffer.Lookup(key); ok {
		return v, true
	}
	if v, _, ok := s.cache.Get(key, s.now()); ok {
		return v, true
	}
	return 0, false
}

// seed 冷读得到的节点值，以及决定冷读时本地缓存的删除代数
type seed struct {
	floor      int64
	generation uint64
}

// bump 在锁内取当前值加一，同时写入缓存和写回缓冲
//
// 本地没有值时需要节点上的值作为基数：返回 errNeedsSeed 和当前删除代数，
// 调用方在锁外读节点后带着 seed 重试。
// 读节点期间如果有缓存条目被删除，别的请求写入并已写回的值可能比 floor 新，
// 此时再次返回 errNeedsSeed 重新读节点。
// 计数单调，本地值与 floor 取较大者。
func (s *Service) bump(key string, sd *seed) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 与 Close 互斥，关闭后的最后一次写回之后不会再有新值进入缓冲
	if s.closed.Load() {
		return 0, ErrServiceClosed
	}

	base, ok := s.lookup(key)
	if !ok {
		// 先 lookup 再取代数，两者之间的删除只会导致多读一次节点
		gen := s.cache.Generation()
		if sd == nil || sd.generation != gen {
			return gen, errNeedsSeed
		}
		base = sd.floor
	} else if sd != nil && base < sd.floor {
		base = sd.floor
	}
	next := base + 1
	s.cache.Put(key, next, s.now())
	s.buffer.Record(key, next)
	return 0, nil
}

// fill 回填缓存，写回中的值可能比节点上的新
func (s *Service) fill(key string, stored int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := stored
	if cur, ok := s.lookup(key); ok && cur > v {
		v = cur
	}
	s.cache.Put(key, v, s.now())
	return v
}

// incrementThrough 同步 INCRBY，节点不可用时按配置重试
// 超时的请求可能已经生效，所以重试可能导致重复计数
func (s *Service) incrementThrough(ctx context.Context, key string) error {
	store := s.router.Route(key)

	var (
		v   int64
		err error
	)
	for attempt := 1; attempt <= s.incrementAttempts; attempt++ {
		v, err = store.Increment(ctx, key, 1)
		if err == nil || !errors.Is(err, counter.ErrStoreUnavailable) || ctx.Err() != nil {
			break
		}
		if attempt < s.incrementAttempts {
			s.ob.WarnContext(ctx, "[Service.IncrementVisit] increment failed, retrying.",
				"key", key, "attempt", attempt, "err", err.Error())
		}
	}
	if err != nil {
		return fmt.Errorf("increment counter %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 并发的 INCRBY 返回顺序不定，缓存只增不减
	s.cache.Update(key, s.now(), func(cur int64, ok bool) int64 {
		if ok && cur > v {
			return cur
		}
		return v
	})
	return nil
}
