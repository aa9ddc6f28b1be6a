package stores

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coocood/freecache"
	"github.com/yikakia/visitcounter/core/counter"
	store_freecache "github.com/yikakia/visitcounter/stores/freecache"
	store_redis "github.com/yikakia/visitcounter/stores/redis"
	store_valkey "github.com/yikakia/visitcounter/stores/valkey"
)

// Open 按地址的 scheme 创建节点
//
//	redis://host:port/db, rediss://...  go-redis
//	valkey://host:port                  valkey-go
//	mem://name                          进程内 freecache，仅用于单实例和测试
//	host:port                           等同于 redis://host:port
func Open(addr string) (counter.Store, error) {
	scheme, rest, found := strings.Cut(addr, "://")
	if !found {
		return store_redis.FromURL("redis://" + addr)
	}

	switch scheme {
	case "redis", "rediss":
		return store_redis.FromURL(addr)
	case "valkey":
		if rest == "" {
			return nil, fmt.Errorf("valkey node %q has no address: %w", addr, counter.ErrConfiguration)
		}
		return store_valkey.FromAddress(rest)
	case "mem":
		return store_freecache.New(freecache.NewCache(store_freecache.DefaultSize),
			store_freecache.WithStoreName(addr)), nil
	default:
		return nil, fmt.Errorf("unsupported node scheme %q in %q: %w", scheme, addr, counter.ErrConfiguration)
	}
}

// OpenAll 打开所有节点，任意一个失败则关闭已打开的节点
func OpenAll(addrs []string) ([]counter.Store, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no backing nodes configured: %w", counter.ErrConfiguration)
	}
	opened := make([]counter.Store, 0, len(addrs))
	for _, addr := range addrs {
		s, err := Open(addr)
		if err != nil {
			return nil, errors.Join(err, CloseAll(opened))
		}
		opened = append(opened, s)
	}
	return opened, nil
}

func CloseAll(stores []counter.Store) error {
	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.StoreName(), err))
		}
	}
	return errors.Join(errs...)
}
