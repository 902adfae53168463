package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m, err := newHTTPMetrics(registry, Config{ServiceName: "test"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/business/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/business/me", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/business/me", "GET", "204"))
	assert.Equal(t, float64(3), got)
}

func TestNewHTTPMetricsToleratesDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := newHTTPMetrics(registry, Config{})
	require.NoError(t, err)
	_, err = newHTTPMetrics(registry, Config{})
	require.NoError(t, err)
}
