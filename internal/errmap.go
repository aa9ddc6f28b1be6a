package internal

import (
	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/telemetry"
)

// ResultFromSource 将读请求的来源转化为 result：本地缓存命中为 hit，回源为 miss
// 为什么要放到一个单独的包？为了避免 counter -> telemetry -> counter 的循环依赖
func ResultFromSource(src counter.Source, err error) telemetry.Result {
	switch {
	case err != nil:
		return telemetry.ResultFail
	case src == counter.SourceInMemory:
		return telemetry.ResultHit
	default:
		return telemetry.ResultMiss
	}
}
