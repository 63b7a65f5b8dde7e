package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// WithTimeout bounds request processing to d by replacing the request's
// context with one that cancels after d. Handlers that honor ctx
// cancellation (brainclient, retrieval, store calls) unwind promptly; the
// response itself is still written by the handler, not by this middleware,
// so it composes with errs.KindTimeout mapping further down the stack.
func WithTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
