package writeback

import (
	"sync"
)

// Buffer 暂存尚未持久化的计数，每个 key 只保留最新的累计值（后写覆盖先写）
//
// 存的是自增后的总数而不是增量，所以覆盖是安全的
type Buffer struct {
	mu      sync.Mutex
	pending map[string]int64
	// 正在写回的快照，写回完成前读路径仍然可以看到这些值
	inflight map[string]int64
}

func NewBuffer() *Buffer {
	return &Buffer{
		pending: make(map[string]int64),
	}
}

func (b *Buffer) Record(key string, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[key] = total
}

// Lookup 先查 pending 再查 inflight
func (b *Buffer) Lookup(key string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.pending[key]; ok {
		return v, true
	}
	v, ok := b.inflight[key]
	return v, ok
}

// Swap 原子地取出 pending 作为 inflight 快照，并换上一个新的空 map
// 之后到达的 Record 写入新 map，既不会丢也不会被重复写回
// pending 为空时返回 nil
func (b *Buffer) Swap() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	b.inflight = b.pending
	b.pending = make(map[string]int64)
	return b.inflight
}

// Settle 结束一次写回：清掉 inflight，把失败的 key 合并回 pending
// 如果 pending 中已经有更新的值则以 pending 为准，返回实际合并回去的数量
func (b *Buffer) Settle(failed map[string]int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight = nil
	merged := 0
	for key, v := range failed {
		if _, ok := b.pending[key]; ok {
			continue
		}
		b.pending[key] = v
		merged++
	}
	return merged
}

// Len pending 中的 key 数量
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
