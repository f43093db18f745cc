package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// TracingMiddleware 为每个请求创建 span，记录路由、用户与文件 id.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracing.StartSpan(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", c.Request.UserAgent()),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))

		if user := GetUser(c); user != "" {
			span.SetAttributes(attribute.String("enduser.id", user))
		}

		if id := c.Param("id"); id != "" {
			span.SetAttributes(attribute.String("file.id", id))
		}

		var err error
		if len(c.Errors) > 0 {
			err = fmt.Errorf("%s", c.Errors.String())
		}

		tracing.EndSpan(span, err)
	}
}
