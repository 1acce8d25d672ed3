package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/threadcomm/internal/workload"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newTestServer(t *testing.T, rl *RateLimitConfig) (*Server, *monitoring.Metrics) {
	t.Helper()

	metrics := monitoring.NewMetrics()
	coord, err := comm.NewCoordinator(3, comm.Options{Metrics: metrics})
	require.NoError(t, err)

	tracer := tracing.New("threadcomm-test", nil)
	t.Cleanup(tracer.Close)

	runner := workload.NewRunner(workload.NewDefaultRegistry(), coord, nil)
	srv := NewServer(Config{Addr: "127.0.0.1:0", RateLimit: rl}, runner, metrics, tracer, nil)
	return srv, metrics
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestRunLifecycle(t *testing.T) {
	srv, metrics := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/runs/last", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/runs", `{"workload": "reduce", "ranks": 4, "rounds": 2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary workload.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.OK)
	assert.Equal(t, "reduce", summary.Workload)
	assert.Equal(t, 4, summary.Size)
	assert.Len(t, summary.Ranks, 4)
	assert.Contains(t, summary.Values, "reduce_total")

	w = do(t, h, http.MethodGet, "/runs/last", "")
	require.Equal(t, http.StatusOK, w.Code)
	var last workload.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &last))
	assert.Equal(t, summary.RunID, last.RunID)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("ok")))
}

func TestCreateRunErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{"workload":`, http.StatusBadRequest},
		{"missing workload", `{"ranks": 2}`, http.StatusBadRequest},
		{"negative ranks", `{"workload": "ring", "ranks": -1}`, http.StatusBadRequest},
		{"unknown workload", `{"workload": "nope"}`, http.StatusNotFound},
		{"ranks above limit", `{"workload": "ring", "ranks": 100000000}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/runs", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestListWorkloads(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := do(t, srv.Handler(), http.MethodGet, "/workloads", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Workloads []workload.Info `json:"workloads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Workloads, 4)
}

func TestMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/runs", `{"workload": "ring"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "threadcomm_messages_sent_total")
	assert.Contains(t, w.Body.String(), "threadcomm_http_requests_total")

	w = do(t, h, http.MethodGet, "/metrics/json", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Runs)
	assert.Positive(t, snap.MessagesSent)
}

func TestCORS(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{"simple GET request with origin", http.MethodGet, "http://localhost:3000", http.StatusOK, true},
		{"preflight OPTIONS request", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, true},
		{"no origin header", http.MethodGet, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("192.168.1.1:1234"))
	assert.Equal(t, http.StatusOK, send("192.168.1.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.168.1.1:1234"))
}

func TestServerAppliesRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, &RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/health", "").Code)
}
