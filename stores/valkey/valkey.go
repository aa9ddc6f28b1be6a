package valkey

import (
	"context"
	"fmt"
	"strconv"

	"github.com/valkey-io/valkey-go"
	"github.com/yikakia/visitcounter/core/counter"
)

func New(client valkey.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		name:   "valkey",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FromAddress 连接单个 valkey 节点，节点名默认为 valkey://addr
// 计数器不走客户端缓存，所以关闭 client side caching
func FromAddress(addr string, opts ...Option) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{addr},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		return nil, counter.Unavailable("valkey://"+addr, "connect", err)
	}
	opts = append([]Option{WithName("valkey://" + addr)}, opts...)
	return New(client, opts...), nil
}

type Store struct {
	name   string
	client valkey.Client
}

// classify valkey 返回的错误回复原样返回，其余视为节点不可用
func (s *Store) classify(op string, err error) error {
	if _, ok := valkey.IsValkeyErr(err); ok {
		return fmt.Errorf("store:%s %s: %w", s.name, op, err)
	}
	return counter.Unavailable(s.name, op, err)
}

func (s *Store) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	cmd := s.client.B().Incrby().Key(key).Increment(amount).Build()
	val, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, s.classify("increment", err)
	}
	return val, nil
}

func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	cmd := s.client.B().Get().Key(key).Build()
	raw, err := s.client.Do(ctx, cmd).ToString()
	if valkey.IsValkeyNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, s.classify("get", err)
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key:%s in store:%s is not an integer: %w", key, s.name, err)
	}
	return val, nil
}

func (s *Store) BatchSet(ctx context.Context, values map[string]int64) error {
	if len(values) == 0 {
		return nil
	}
	kv := s.client.B().Mset().KeyValue()
	for key, v := range values {
		kv = kv.KeyValue(key, strconv.FormatInt(v, 10))
	}
	if err := s.client.Do(ctx, kv.Build()).Error(); err != nil {
		return s.classify("batch_set", err)
	}
	return nil
}

func (s *Store) StoreName() string {
	return s.name
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}

var _ counter.Store = (*Store)(nil)
