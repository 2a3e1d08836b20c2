package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sysjosh/digestd/internal/scheduler"
	"github.com/sysjosh/digestd/pkg/test/testutil"
)

func newTestServer(t *testing.T, job scheduler.Job, preview PreviewFunc) (*Server, *scheduler.Scheduler) {
	ingestion := scheduler.New("ingestion", time.Hour, job)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "digestd_test_total", Help: "Test counter"})
	counter.Inc()

	server, err := New(testutil.Context(t), ingestion, preview, counter)
	require.NoError(t, err)
	return server, ingestion
}

func call(t *testing.T, server *Server, method string, target string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, nil).WithContext(testutil.Context(t))
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	return recorder
}

func TestPreview(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, func(ctx context.Context) error { return nil }, func(ctx context.Context, token string) (string, error) {
		if token == "broken" {
			return "", errors.New("store is unavailable")
		}
		return "<html>token=" + token + "</html>", nil
	})

	response := call(t, server, http.MethodGet, "/preview?token=abc")
	require.Equal(t, http.StatusOK, response.Code)
	require.Equal(t, "text/html; charset=utf-8", response.Header().Get("Content-Type"))
	require.Equal(t, "<html>token=abc</html>", response.Body.String())

	response = call(t, server, http.MethodGet, "/preview?token=broken")
	require.Equal(t, http.StatusBadGateway, response.Code)

	response = call(t, server, http.MethodPost, "/preview")
	require.Equal(t, http.StatusMethodNotAllowed, response.Code)
}

func TestHealthzAndIngest(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	server, ingestion := newTestServer(t, func(ctx context.Context) error {
		ran <- struct{}{}
		return errors.New("feeds are unavailable")
	}, nil)

	response := call(t, server, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, response.Code)
	require.JSONEq(t, `{"status": "pending"}`, response.Body.String())

	ctx := testutil.Context(t)
	ingestion.Start(ctx, false)
	defer ingestion.Stop(ctx)

	response = call(t, server, http.MethodPost, "/ingest")
	require.Equal(t, http.StatusAccepted, response.Code)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Ingestion hasn't been triggered")
	}

	require.Eventually(t, func() bool {
		_, ok := ingestion.Last()
		return ok
	}, 5*time.Second, 5*time.Millisecond)

	var status healthStatus
	response = call(t, server, http.MethodGet, "/healthz")
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &status))
	require.Equal(t, "failed", status.Status)
	require.Equal(t, "feeds are unavailable", status.Error)
	require.NotNil(t, status.LastRun)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, func(ctx context.Context) error { return nil }, nil)

	response := call(t, server, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, response.Code)
	require.True(t, strings.Contains(response.Body.String(), "digestd_test_total 1"))
	require.True(t, strings.Contains(response.Body.String(), "go_goroutines"))
}
