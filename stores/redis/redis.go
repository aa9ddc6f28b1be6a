package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/yikakia/visitcounter/core/counter"
)

type Client interface {
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	MSet(ctx context.Context, values ...any) *redis.StatusCmd
	Close() error
}

func New(client Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		name:   "redis",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromURL 按 redis://[user:pass@]host:port/db 创建节点，节点名默认为地址本身
//
// go-redis 默认会在网络错误时重试命令（Options.MaxRetries），
// 对 INCRBY 而言这意味着 at-least-once：已经生效的自增可能被再执行一次
func FromURL(url string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis node %q: %w: %w", url, counter.ErrConfiguration, err)
	}
	opts = append([]Option{WithStoreName(url)}, opts...)
	return New(redis.NewClient(options), opts...), nil
}

type Store struct {
	client Client
	name   string
}

// classify redis 返回的错误（WRONGTYPE 等）原样返回，其余（网络、超时、ctx）视为节点不可用
func (s *Store) classify(op string, err error) error {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return fmt.Errorf("store:%s %s: %w", s.name, op, err)
	}
	return counter.Unavailable(s.name, op, err)
}

func (s *Store) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	val, err := s.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, s.classify("increment", err)
	}
	return val, nil
}

func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, s.classify("get", err)
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key:%s in store:%s is not an integer: %w", key, s.name, err)
	}
	return val, nil
}

// BatchSet 使用一次 MSET 写入
func (s *Store) BatchSet(ctx context.Context, values map[string]int64) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]any, 0, len(values)*2)
	for key, v := range values {
		pairs = append(pairs, key, v)
	}
	if err := s.client.MSet(ctx, pairs...).Err(); err != nil {
		return s.classify("batch_set", err)
	}
	return nil
}

func (s *Store) StoreName() string {
	return s.name
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ counter.Store = (*Store)(nil)
var _ Client = (*redis.Client)(nil)
