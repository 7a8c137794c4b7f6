package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route so arbitrary
// paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics observes request latency by route template. Probe endpoints listed in
// skip are served without being recorded.
func Metrics(skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		ignored[path] = struct{}{}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := ignored[route]; ok {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		metrics.RequestsInFlight.Inc()
		start := time.Now()
		defer func() {
			metrics.RequestsInFlight.Dec()
			metrics.APILatency.
				WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
				Observe(time.Since(start).Seconds())
		}()

		c.Next()
	}
}
