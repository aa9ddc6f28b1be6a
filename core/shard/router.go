package shard

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/yikakia/visitcounter/core/counter"
)

// Strategy key 到节点下标的映射方式
type Strategy int

const (
	// StrategyModN hash(key) mod N，N 变化时绝大多数 key 会换节点，没有迁移
	StrategyModN Strategy = iota
	// StrategyRendezvous 最高随机权重哈希，按节点名计算，增删一个节点只影响约 1/N 的 key
	StrategyRendezvous
)

type Option func(*Router)

func WithStrategy(s Strategy) Option {
	return func(r *Router) {
		r.strategy = s
	}
}

// Router 在固定的节点列表上做确定性路由，进程生命周期内节点列表不变
type Router struct {
	stores   []counter.Store
	strategy Strategy

	// StrategyRendezvous 使用
	hrw    *rendezvous.Rendezvous
	byName map[string]int
}

// NewRouter 节点列表为空返回 counter.ErrConfiguration
// 节点名（StoreName）必须唯一，rendezvous 依赖节点名定位节点
func NewRouter(stores []counter.Store, opts ...Option) (*Router, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("shard router requires at least one backing store: %w", counter.ErrConfiguration)
	}

	r := &Router{
		stores: stores,
		byName: make(map[string]int, len(stores)),
	}
	for _, opt := range opts {
		opt(r)
	}

	names := make([]string, 0, len(stores))
	for i, s := range stores {
		if s == nil {
			return nil, fmt.Errorf("backing store #%d is nil: %w", i, counter.ErrConfiguration)
		}
		name := s.StoreName()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate backing store name %q: %w", name, counter.ErrConfiguration)
		}
		r.byName[name] = i
		names = append(names, name)
	}

	switch r.strategy {
	case StrategyModN:
	case StrategyRendezvous:
		r.hrw = rendezvous.New(names, xxhash.Sum64String)
	default:
		return nil, fmt.Errorf("unknown routing strategy %d: %w", r.strategy, counter.ErrConfiguration)
	}
	return r, nil
}

// Index key 所属节点的下标，范围 [0, N)
func (r *Router) Index(key string) int {
	if r.hrw != nil {
		return r.byName[r.hrw.Lookup(key)]
	}
	return int(xxhash.Sum64String(key) % uint64(len(r.stores)))
}

func (r *Router) Route(key string) counter.Store {
	return r.stores[r.Index(key)]
}

// Store 按下标取节点
func (r *Router) Store(idx int) counter.Store {
	return r.stores[idx]
}

func (r *Router) Stores() []counter.Store {
	return r.stores
}

func (r *Router) Strategy() Strategy {
	return r.strategy
}

func (r *Router) Len() int {
	return len(r.stores)
}

// Group 按节点下标对一批 key 分组，写回时每个节点只发一次 BatchSet
func (r *Router) Group(keys []string) map[int][]string {
	groups := make(map[int][]string)
	for _, key := range keys {
		idx := r.Index(key)
		groups[idx] = append(groups[idx], key)
	}
	return groups
}
