package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shaswata28/studymate/internal/log"
)

// Recovery converts a panic in a downstream handler into a 500 InternalError
// response instead of crashing the process, mirroring gin.Recovery but
// logging through the service's own structured logger.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered", log.Any("panic", r))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()
	}
}
