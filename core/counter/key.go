package counter

const keyPrefix = "visit_count:"

// Key 页面 id 对应的持久化 key，例如 visit_count:home
func Key(pageID string) string {
	return keyPrefix + pageID
}

// Source 读请求的数据来源，原样透传给调用方作为诊断字段
type Source string

const (
	SourceInMemory Source = "in_memory"
	SourceStore    Source = "store"
)
