package freecache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/coocood/freecache"
	"github.com/yikakia/visitcounter/core/counter"
)

// Cache 定义 freecache 客户端需要实现的接口
type Cache interface {
	Get(key []byte) (value []byte, err error)
	Set(key, value []byte, expireSeconds int) error
	Clear()
}

// DefaultSize 进程内节点默认 16MB
const DefaultSize = 16 * 1024 * 1024

// New 创建一个进程内的计数节点，值以十进制字符串保存，和 redis 的编码一致
// 用于单实例部署（mem:// 地址）与测试，进程退出后数据丢失
func New(client *freecache.Cache, opts ...Option) *Store {
	s := &Store{
		client: client,
		name:   "freecache",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option 定义 Store 的选项函数
type Option func(*Store)

func WithStoreName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

type Store struct {
	client Cache
	name   string

	// freecache 本身并发安全，但读-改-写需要串行
	mu sync.Mutex
}

func (s *Store) checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return counter.Unavailable(s.name, op, ctx.Err())
	default:
		return nil
	}
}

func (s *Store) load(key string) (int64, error) {
	raw, err := s.client.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key:%s in store:%s is not an integer: %w", key, s.name, err)
	}
	return v, nil
}

func (s *Store) save(key string, v int64) error {
	// expireSeconds 为 0 表示永不过期
	return s.client.Set([]byte(key), []byte(strconv.FormatInt(v, 10)), 0)
}

func (s *Store) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	if err := s.checkCtx(ctx, "increment"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(key)
	if err != nil {
		return 0, err
	}
	next := cur + amount
	if err := s.save(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Get 不存在的 key 返回 0
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	if err := s.checkCtx(ctx, "get"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key)
}

func (s *Store) BatchSet(ctx context.Context, values map[string]int64) error {
	if err := s.checkCtx(ctx, "batch_set"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, v := range values {
		if err := s.save(key, v); err != nil {
			errs = append(errs, fmt.Errorf("key:%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// StoreName 返回 Store 名称
func (s *Store) StoreName() string {
	return s.name
}

func (s *Store) Close() error {
	s.client.Clear()
	return nil
}

var _ counter.Store = (*Store)(nil)
var _ Cache = (*freecache.Cache)(nil)
