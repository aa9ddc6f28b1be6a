package mocks

// Regenerate mocks for counter interfaces.
// 重新生成计数器接口的 mock 代码。
//go:generate go tool mockgen -source=../store.go -destination=mock_store.go -package=mocks
