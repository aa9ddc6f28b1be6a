package counter

import (
	"context"
)

// Store 后端存储节点抽象，对接 redis / valkey / 进程内 freecache
//
// 一个 Store 只代表一个节点，分片路由由 shard.Router 负责
type Store interface {
	// Increment 原子地加上 amount 并返回新值
	//
	// 语义为 at-least-once：客户端在网络错误时可能重试，而重试的 INCRBY 可能已经在服务端生效，
	// 此时同一次调用会被计数两次。我们接受这种重复计数，不引入幂等 token
	Increment(ctx context.Context, key string, amount int64) (int64, error)
	// Get key 不存在时返回 0, nil；节点不可达或超时返回 ErrStoreUnavailable，绝不能伪造成 0
	Get(ctx context.Context, key string) (int64, error)
	// BatchSet 一次往返写入多个键值，只写当前节点，不保证跨 key 原子性
	// 与并发的 Increment 交错时以最后写入为准
	BatchSet(ctx context.Context, values map[string]int64) error
	StoreName() string
	Close() error
}

// 在对 client 直接进行封装时，不应实现额外的 feature，例如超时、观测
// 如果要额外增加功能，应当在 decorator 包里包裹一层显式地进行实现
