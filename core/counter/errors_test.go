package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailableKeepsCause(t *testing.T) {
	err := Unavailable("redis-0", "get", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "redis-0")
}

func TestFlushErrorUnwrap(t *testing.T) {
	cause := Unavailable("redis-1", "batch_set", errors.New("connection refused"))
	var err error = &FlushError{StoreName: "redis-1", Keys: []string{"visit_count:a", "visit_count:b"}, Err: cause}

	var flushErr *FlushError
	assert.True(t, errors.As(err, &flushErr))
	assert.Equal(t, []string{"visit_count:a", "visit_count:b"}, flushErr.Keys)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "flush 2 keys")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "visit_count:home", Key("home"))
	assert.Equal(t, "visit_count:", Key(""))
}
