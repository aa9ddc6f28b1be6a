package decorator

import (
	"context"
	"errors"
	"time"

	"github.com/yikakia/visitcounter/core/counter"
)

var _ counter.Store = (*TimeoutStore)(nil)

// TimeoutStore 给每次节点调用加上超时，超时视为 counter.ErrStoreUnavailable
type TimeoutStore struct {
	store   counter.Store
	timeout time.Duration
}

func NewTimeoutStore(store counter.Store, timeout time.Duration) *TimeoutStore {
	return &TimeoutStore{store: store, timeout: timeout}
}

func (t *TimeoutStore) wrap(op string, err error) error {
	if err == nil || errors.Is(err, counter.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return counter.Unavailable(t.store.StoreName(), op, err)
	}
	return err
}

func (t *TimeoutStore) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	v, err := t.store.Increment(ctx, key, amount)
	return v, t.wrap("increment", err)
}

func (t *TimeoutStore) Get(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	v, err := t.store.Get(ctx, key)
	return v, t.wrap("get", err)
}

func (t *TimeoutStore) BatchSet(ctx context.Context, values map[string]int64) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.wrap("batch_set", t.store.BatchSet(ctx, values))
}

func (t *TimeoutStore) StoreName() string {
	return t.store.StoreName()
}

func (t *TimeoutStore) Close() error {
	return t.store.Close()
}
