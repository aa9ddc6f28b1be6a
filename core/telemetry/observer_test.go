package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservableEmit_LogsMetricsFailure(t *testing.T) {
	var buf bytes.Buffer
	ob := &Observable{
		Metrics: MetricsFunc(func(context.Context, *Event) error {
			return errors.New("sink timeout")
		}),
		Logger: NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	}

	ob.Emit(context.Background(), "Flusher.Flush", &Event{Op: OpFlush})

	assert.Contains(t, buf.String(), "[Flusher.Flush] Record Metrics Failed.")
	assert.Contains(t, buf.String(), "sink timeout")
	assert.Contains(t, buf.String(), "op=flush")
}

func TestObservableEmit_Records(t *testing.T) {
	var got []*Event
	ob := &Observable{
		Metrics: MetricsFunc(func(_ context.Context, evt *Event) error {
			got = append(got, evt)
			return nil
		}),
		Logger: SlogLogger(),
	}

	ob.Emit(context.Background(), "test", &Event{Op: OpGet, Result: ResultHit})
	if assert.Len(t, got, 1) {
		assert.Equal(t, OpGet, got[0].Op)
		assert.Equal(t, ResultHit, got[0].Result)
	}
}
