package decorator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/counter/mocks"
	"github.com/yikakia/visitcounter/core/decorator"
	"go.uber.org/mock/gomock"
)

func TestTimeoutStore(t *testing.T) {
	ctx := context.Background()

	t.Run("deadline becomes unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().StoreName().Return("slow").AnyTimes()
		store.EXPECT().Get(gomock.Any(), "k").DoAndReturn(func(ctx context.Context, _ string) (int64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})

		d := decorator.NewTimeoutStore(store, 10*time.Millisecond)
		_, err := d.Get(ctx, "k")
		require.Error(t, err)
		assert.ErrorIs(t, err, counter.ErrStoreUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("deadline is set", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().BatchSet(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ map[string]int64) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		})

		d := decorator.NewTimeoutStore(store, time.Second)
		assert.NoError(t, d.BatchSet(ctx, map[string]int64{"k": 1}))
	})

	t.Run("other errors pass through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		boom := errors.New("WRONGTYPE")
		store.EXPECT().Increment(gomock.Any(), "k", int64(1)).Return(int64(0), boom)

		d := decorator.NewTimeoutStore(store, time.Second)
		_, err := d.Increment(ctx, "k", 1)
		assert.Equal(t, boom, err)
		assert.NotErrorIs(t, err, counter.ErrStoreUnavailable)
	})
}
