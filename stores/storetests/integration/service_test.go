//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yikakia/visitcounter"
	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/shard"
	store_redis "github.com/yikakia/visitcounter/stores/redis"
)

// 两个真实的 redis 节点，写回后每个 key 只出现在自己路由到的节点上
func TestService_FlushRoutesToOwningRedis(t *testing.T) {
	ctx := context.Background()
	clients := []*redis.Client{newRedisClient(t), newRedisClient(t)}

	nodes := []counter.Store{
		store_redis.New(clients[0], store_redis.WithStoreName("redis-a")),
		store_redis.New(clients[1], store_redis.WithStoreName("redis-b")),
	}
	router, err := shard.NewRouter(nodes)
	require.NoError(t, err)

	builder, err := visitcounter.NewBuilder(nodes...)
	require.NoError(t, err)
	svc, err := builder.WithFlushInterval(time.Hour).Build()
	require.NoError(t, err)

	pages := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		page := fmt.Sprintf("page-%d", i)
		pages = append(pages, page)
		for j := 0; j <= i; j++ {
			require.NoError(t, svc.IncrementVisit(ctx, page))
		}
	}
	require.NoError(t, svc.Flush(ctx))

	for i, page := range pages {
		key := counter.Key(page)
		owner := router.Index(key)
		got, err := clients[owner].Get(ctx, key).Int64()
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), got)

		other := clients[1-owner].Exists(ctx, key).Val()
		assert.Zero(t, other, "key %s leaked to the non-owning node", key)
	}
}
