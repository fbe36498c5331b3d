package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
)

// Profiling attaches route and method pprof labels to each request so
// Pyroscope profiles can be sliced by endpoint. Paths in skip are left
// unlabeled.
func Profiling(enabled bool, skip ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if slices.Contains(skip, c.Request.URL.Path) {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(c.FullPath(), c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
