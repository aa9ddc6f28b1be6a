package telemetry

import (
	"context"
	"log/slog"
)

type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// SlogLogger 使用 slog 的默认 logger
func SlogLogger() Logger {
	return &slogLogger{}
}

// NewSlogLogger 包装指定的 *slog.Logger，例如带上 component 字段的子 logger
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

var _ Logger = (*slogLogger)(nil)

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) logger() *slog.Logger {
	if s.l == nil {
		return slog.Default()
	}
	return s.l
}

func (s *slogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	s.logger().DebugContext(ctx, msg, args...)
}

func (s *slogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	s.logger().InfoContext(ctx, msg, args...)
}

func (s *slogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	s.logger().WarnContext(ctx, msg, args...)
}

func (s *slogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.logger().ErrorContext(ctx, msg, args...)
}
