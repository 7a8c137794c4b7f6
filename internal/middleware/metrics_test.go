package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/pkg/metrics"
)

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics("/healthz-skipped"))
	r.GET("/metrics-test/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz-skipped", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Pre-create the series the requests below should land in.
	metrics.APILatency.WithLabelValues(http.MethodGet, "/metrics-test/:id", "200")
	metrics.APILatency.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	before := testutil.CollectAndCount(metrics.APILatency)

	for _, path := range []string{"/metrics-test/1", "/metrics-test/2", "/nope/abc", "/nope/def", "/healthz-skipped"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, before, testutil.CollectAndCount(metrics.APILatency))
	require.Zero(t, testutil.ToFloat64(metrics.RequestsInFlight))
}
