package telemetry

import (
	"context"
	"maps"
	"sync"
	"time"
)

func ContextWithEvent(ctx context.Context, evt *Event) context.Context {
	return context.WithValue(ctx, eventKey{}, evt)
}

func AddCustomFields(ctx context.Context, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	value := ctx.Value(eventKey{})
	if value == nil {
		return
	}
	e := value.(*Event)
	e.mu.Lock()
	defer e.mu.Unlock()

	for k, v := range fields {
		e.getOrInitCustomFields()[k] = v
	}
}

type eventKey struct{}

type Event struct {
	Op Op
	// Get / GetVisitCount 的结果 hit miss fail
	// 可以使用 ResultFromErr 进行简单转换
	Result    Result
	StoreName string
	// 批量操作涉及的 key 数量，单 key 操作为 1
	Keys    int
	Latency time.Duration
	Error   error // 最后拿到的err

	mu           sync.Mutex
	customFields map[string]string
}

func (e *Event) getOrInitCustomFields() map[string]string {
	if e.customFields == nil {
		e.customFields = map[string]string{}
	}
	return e.customFields
}

func (e *Event) FrozenCustomFields() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.getOrInitCustomFields()
	return maps.Clone(c)
}

type Op string

const (
	OpIncrement  Op = "increment"
	OpGet        Op = "get"
	OpBatchSet   Op = "batch_set"
	OpFlush      Op = "flush"
	OpEvict      Op = "evict"
	OpVisit      Op = "visit"
	OpVisitCount Op = "visit_count"
)

type Result string

const (
	ResultHit  Result = "hit"
	ResultMiss Result = "miss"
	ResultFail Result = "fail"
)

// ResultFromErr 将 err 转化为 result
// 计数器不存在时 store 返回 0 而不是 err，所以 err == nil 即视为命中
func ResultFromErr(err error) Result {
	if err == nil {
		return ResultHit
	}
	return ResultFail
}
