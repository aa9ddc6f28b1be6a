package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coocood/freecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yikakia/visitcounter"
	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/telemetry"
	fcstore "github.com/yikakia/visitcounter/stores/freecache"
)

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) IncrementVisit(ctx context.Context, pageID string) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}

func (m *mockCounter) GetVisitCount(ctx context.Context, pageID string) (int64, counter.Source, error) {
	args := m.Called(ctx, pageID)
	return args.Get(0).(int64), args.Get(1).(counter.Source), args.Error(2)
}

func newTestServer(t *testing.T, svc VisitCounter) *httptest.Server {
	t.Helper()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	srv := httptest.NewServer(newHandler(svc, telemetry.SlogLogger(), metrics))
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandler_VisitFlow(t *testing.T) {
	b, err := visitcounter.NewBuilder(
		fcstore.New(freecache.NewCache(fcstore.DefaultSize), fcstore.WithStoreName("mem://a")),
		fcstore.New(freecache.NewCache(fcstore.DefaultSize), fcstore.WithStoreName("mem://b")),
	)
	require.NoError(t, err)
	svc, err := b.WithFlushInterval(time.Hour).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	srv := newTestServer(t, svc)

	for range 3 {
		resp, err := http.Post(srv.URL+"/visit/home", "application/json", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode[visitResponse](t, resp)
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "Visit recorded for page home", body.Message)
	}

	resp, err := http.Get(srv.URL + "/visits/home")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decode[visitsResponse](t, resp)
	assert.Equal(t, int64(3), body.Visits)
	assert.Equal(t, "in_memory", body.ServedVia)

	resp, err = http.Get(srv.URL + "/visits/other")
	require.NoError(t, err)
	body = decode[visitsResponse](t, resp)
	assert.Equal(t, int64(0), body.Visits)
	assert.Equal(t, "store", body.ServedVia)
}

func TestHandler_Errors(t *testing.T) {
	svc := &mockCounter{}
	boom := counter.Unavailable("redis://a", "get", errors.New("connection refused"))
	svc.On("IncrementVisit", mock.Anything, "home").Return(boom)
	svc.On("GetVisitCount", mock.Anything, "home").Return(int64(0), counter.Source(""), boom)

	srv := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/visit/home", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Detail, "store unavailable")

	resp, err = http.Get(srv.URL + "/visits/home")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Detail, "connection refused")

	svc.AssertExpectations(t)
}

func TestHandler_Routes(t *testing.T) {
	svc := &mockCounter{}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/visit/home")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	svc.AssertNotCalled(t, "IncrementVisit", mock.Anything, mock.Anything)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
