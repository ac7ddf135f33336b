package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-mirror/internal/crawler"
	"github.com/JakeFAU/site-mirror/internal/metrics"
)

type fixedState crawler.State

func (f fixedState) State() crawler.State { return crawler.State(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := New(prometheus.NewRegistry(), nil, zap.NewNop())
	rec := get(t, srv.Handler(), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyzFollowsCrawlState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state crawler.State
		code  int
	}{
		{crawler.StateIdle, http.StatusServiceUnavailable},
		{crawler.StateRunning, http.StatusOK},
		{crawler.StateRendering, http.StatusOK},
		{crawler.StatePersisting, http.StatusOK},
		{crawler.StateTerminated, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		srv := New(prometheus.NewRegistry(), fixedState(tt.state), nil)
		rec := get(t, srv.Handler(), "/readyz")
		require.Equal(t, tt.code, rec.Code, tt.state.String())

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.state.String(), body["state"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewCrawl(reg)
	require.NoError(t, err)
	m.ObservePage(metrics.OutcomeSaved, 128)

	rec := get(t, New(reg, nil, nil).Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sitemirror_pages_total{outcome="saved"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	rec := get(t, New(prometheus.NewRegistry(), nil, nil).Handler(), "/v1/jobs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	srv := New(prometheus.NewRegistry(), nil, nil)
	h := srv.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(prometheus.NewRegistry(), nil, nil).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Contains(t, string(body), "ok")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
