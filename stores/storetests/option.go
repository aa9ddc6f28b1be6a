package storetests

import (
	"testing"

	"github.com/yikakia/visitcounter/core/counter"
)

type Config struct {
	WaitingAfterWrite func(*testing.T, counter.Store)
	// 对于没有网络的进程内节点，并发用例可以开更多 goroutine
	Concurrency int
}

type Option interface {
	Apply(*Config)
}

type OptionFunc func(*Config)

func (f OptionFunc) Apply(c *Config) {
	f(c)
}

func WithWaitingAfterWrite(f func(t *testing.T, s counter.Store)) Option {
	return OptionFunc(func(c *Config) {
		c.WaitingAfterWrite = f
	})
}

func WithConcurrency(n int) Option {
	return OptionFunc(func(c *Config) {
		c.Concurrency = n
	})
}

func NewConfig() *Config {
	return &Config{
		WaitingAfterWrite: func(*testing.T, counter.Store) {},
		Concurrency:       50,
	}
}
