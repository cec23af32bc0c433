package middleware

import (
	"strconv"

	"github.com/featuretoggle/featuretoggle/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics counts requests by method, matched route pattern and status.
// Unmatched paths are grouped under "unmatched" to bound label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
