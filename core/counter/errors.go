package counter

import (
	"errors"
	"fmt"
	"strings"
)

var ErrConfiguration = errors.New("invalid configuration")
var ErrStoreUnavailable = errors.New("store unavailable")

// Unavailable 把传输层错误包装为 ErrStoreUnavailable，同时保留原始错误
func Unavailable(storeName string, op string, err error) error {
	return fmt.Errorf("store:%s %s: %w: %w", storeName, op, ErrStoreUnavailable, err)
}

// FlushError 一次写回中某个节点的 BatchSet 失败
type FlushError struct {
	StoreName string
	Keys      []string
	Err       error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %d keys to store:%s failed: %v [%s]",
		len(e.Keys), e.StoreName, e.Err, strings.Join(e.Keys, ","))
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
