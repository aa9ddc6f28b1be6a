package storetests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yikakia/visitcounter/core/counter"
)

// RunStoreTestSuites 所有 counter.Store 实现都应通过的用例
// newStore 每次返回一个空节点
func RunStoreTestSuites(t *testing.T, newStore func(*testing.T) counter.Store, opts ...Option) {
	config := NewConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	waitForStore := func(t *testing.T, s counter.Store) {
		config.WaitingAfterWrite(t, s)
	}

	t.Run("Get", func(t *testing.T) {
		t.Run("AbsentKeyIsZero", func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			// 不存在的 key 视为 0，不是错误
			val, err := s.Get(ctx, "visit_count:absent")
			require.NoError(t, err)
			assert.Equal(t, int64(0), val)
		})

		t.Run("ContextCancelled", func(t *testing.T) {
			s := newStore(t)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := s.Get(ctx, "visit_count:cancel")
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, err, counter.ErrStoreUnavailable)
		})
	})

	t.Run("Increment", func(t *testing.T) {
		t.Run("NewKey", func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			val, err := s.Increment(ctx, "visit_count:new", 1)
			require.NoError(t, err)
			assert.Equal(t, int64(1), val)
			waitForStore(t, s)

			got, err := s.Get(ctx, "visit_count:new")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got)
		})

		t.Run("Accumulates", func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				val, err := s.Increment(ctx, "visit_count:acc", 2)
				require.NoError(t, err)
				assert.Equal(t, int64(2*i), val)
			}
		})

		t.Run("Concurrent", func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			var wg sync.WaitGroup
			wg.Add(config.Concurrency)
			for i := 0; i < config.Concurrency; i++ {
				go func() {
					defer wg.Done()
					_, err := s.Increment(ctx, "visit_count:concurrent", 1)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			waitForStore(t, s)

			got, err := s.Get(ctx, "visit_count:concurrent")
			require.NoError(t, err)
			assert.Equal(t, int64(config.Concurrency), got)
		})

		t.Run("ContextCancelled", func(t *testing.T) {
			s := newStore(t)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := s.Increment(ctx, "visit_count:cancel", 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
		})
	})

	t.Run("BatchSet", func(t *testing.T) {
		t.Run("MultipleKeys", func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			values := map[string]int64{}
			for i := 0; i < 10; i++ {
				values[fmt.Sprintf("visit_count:page-%d", i)] = int64(i * 10)
			}
			require.NoError(t, s.BatchSet(ctx, values))
			waitForStore(t, s)

			for key, want := range values {
				got, err := s.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, want, got, "key %s", key)
			}
		})

		t.Run("OverwritesIncrement", func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			_, err := s.Increment(ctx, "visit_count:lww", 5)
			require.NoError(t, err)

			// 最后写入为准
			require.NoError(t, s.BatchSet(ctx, map[string]int64{"visit_count:lww": 3}))
			waitForStore(t, s)

			got, err := s.Get(ctx, "visit_count:lww")
			require.NoError(t, err)
			assert.Equal(t, int64(3), got)

			val, err := s.Increment(ctx, "visit_count:lww", 1)
			require.NoError(t, err)
			assert.Equal(t, int64(4), val)
		})

		t.Run("Empty", func(t *testing.T) {
			s := newStore(t)
			assert.NoError(t, s.BatchSet(context.Background(), map[string]int64{}))
			assert.NoError(t, s.BatchSet(context.Background(), nil))
		})

		t.Run("ContextCancelled", func(t *testing.T) {
			s := newStore(t)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := s.BatchSet(ctx, map[string]int64{"visit_count:cancel": 1})
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, err, counter.ErrStoreUnavailable)
		})
	})

	t.Run("StoreName", func(t *testing.T) {
		s := newStore(t)
		assert.NotEmpty(t, s.StoreName())
		assert.Equal(t, s.StoreName(), s.StoreName())
	})
}
