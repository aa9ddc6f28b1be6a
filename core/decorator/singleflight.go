package decorator

import (
	"context"

	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/telemetry"
	"golang.org/x/sync/singleflight"
)

var _ counter.Store = (*SingleflightStore)(nil)

// SingleflightStore 使用 singleflight 合并同一个 key 的并发 Get
// 冷 key 被大量并发访问时只回源一次
// 如果启用了观测，则会在 Get 中注入 shared true,false 标明该请求是否是 shared
type SingleflightStore struct {
	counter.Store
	Group *singleflight.Group
}

func NewSingleflightStore(store counter.Store) *SingleflightStore {
	return &SingleflightStore{
		Store: store,
		Group: &singleflight.Group{},
	}
}

func (s *SingleflightStore) Get(ctx context.Context, key string) (int64, error) {
	val, err, shared := s.Group.Do(key, func() (any, error) {
		return s.Store.Get(ctx, key)
	})
	s.addTags(ctx, shared)
	if err != nil {
		return 0, err
	}
	return val.(int64), nil
}

func (s *SingleflightStore) addTags(ctx context.Context, shared bool) {
	tags := map[string]string{
		"shared": "false",
	}
	if shared {
		tags["shared"] = "true"
	}

	telemetry.AddCustomFields(ctx, tags)
}
