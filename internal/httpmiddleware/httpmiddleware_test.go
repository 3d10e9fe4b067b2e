package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClientLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewClientLimiter(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, l.allow("a"), "one token per second at 60/min")
	assert.False(t, l.allow("a"))

	now = now.Add(500 * time.Millisecond)
	assert.False(t, l.allow("a"), "half a token is not enough")
	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.allow("a"), "partial refills add up")
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewClientLimiter(2, 60)
	l.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		assert.True(t, l.allow(ip))
	}
	assert.Equal(t, 3, l.tracked())

	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"))
	assert.Equal(t, 3, l.tracked(), "nothing is full yet")

	now = now.Add(2 * time.Second)
	assert.True(t, l.allow("10.0.0.4"))
	assert.Equal(t, 1, l.tracked(), "refilled buckets are dropped")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(NewClientLimiter(1, 1).GinMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "/x", nil).Code)
	w := serve(r, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	open := gin.New()
	open.Use(NewClientLimiter(0, 0).GinMiddleware())
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(open, "/x", nil).Code)
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core), "/healthz"))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(TraceKey)) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "/x", nil)
	traceID := w.Header().Get(TraceHeader)
	require.NotEmpty(t, traceID)
	assert.Equal(t, traceID, w.Body.String())

	w = serve(r, "/x", http.Header{TraceHeader: {"abc"}})
	assert.Equal(t, "abc", w.Header().Get(TraceHeader))

	serve(r, "/missing", nil)
	serve(r, "/healthz", nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, traceID, entries[0].ContextMap()["trace_id"])
	assert.Equal(t, "abc", entries[1].ContextMap()["trace_id"])
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/homework/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/api/homework/1", nil)
	serve(r, "/api/homework/2", nil)
	serve(r, "/nope", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/homework/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
}
