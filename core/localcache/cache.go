package localcache

import (
	"sync"
	"time"
)

type entry struct {
	value      int64
	insertedAt time.Time
}

// Cache 进程内的短期读缓存，每个条目记录最后一次已知的值和写入时间
//
// Get 不会因为过期而删除或隐藏条目，过期清理只由 Evictor 负责，
// 因此读到的值最多可能陈旧一个清理周期
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	// 每次有条目被删除时加一
	generation uint64
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

func (c *Cache) Put(key string, value int64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, insertedAt: now}
}

// Get 返回值和条目年龄
func (c *Cache) Get(key string, now time.Time) (int64, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, 0, false
	}
	return e.value, now.Sub(e.insertedAt), true
}

// Update 在写锁内基于当前值计算新值，保证并发自增不丢更新
// fn 的 ok 表示当前是否存在条目，fn 不能阻塞
func (c *Cache) Update(key string, now time.Time, fn func(cur int64, ok bool) int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	next := fn(e.value, ok)
	c.entries[key] = entry{value: next, insertedAt: now}
	return next
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.generation++
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Generation 删除代数，两次读取之间没有变化说明期间没有条目被删除
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Sweep 删除所有 now - insertedAt > ttl 的条目，返回删除数量
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.generation++
	}
	return removed
}
