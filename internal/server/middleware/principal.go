package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shaswata28/studymate/internal/authz"
)

// Header names the upstream identity gateway is expected to set once it has
// verified the caller; this core never issues or verifies credentials
// itself (identity/JWT is an external collaborator, out of scope).
const (
	HeaderUserID   = "X-Studymate-User-Id"
	HeaderAPIKeyID = "X-Studymate-Api-Key-Id"
	HeaderCourseID = "X-Studymate-Course-Id"
)

// Principal populates the request context with the Principal the upstream
// gateway already authenticated, trusting HeaderUserID/HeaderAPIKeyID as
// given. A request carrying neither is rejected: every route this core
// serves is course-scoped, so an unauthenticated caller has nothing to do
// here.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		switch {
		case c.GetHeader(HeaderAPIKeyID) != "":
			apiKeyID, err := strconv.Atoi(c.GetHeader(HeaderAPIKeyID))
			if err != nil {
				AbortWithError(c, http.StatusUnauthorized, invalidPrincipalHeader)
				return
			}

			ctx = authz.NewAPIKeyContext(ctx, apiKeyID, c.GetHeader(HeaderCourseID))
		case c.GetHeader(HeaderUserID) != "":
			userID, err := strconv.Atoi(c.GetHeader(HeaderUserID))
			if err != nil {
				AbortWithError(c, http.StatusUnauthorized, invalidPrincipalHeader)
				return
			}

			ctx = authz.NewUserContext(ctx, userID)
		default:
			AbortWithError(c, http.StatusUnauthorized, missingPrincipalHeader)
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

var (
	invalidPrincipalHeader = principalHeaderError("invalid principal header")
	missingPrincipalHeader = principalHeaderError("missing principal header")
)

type principalHeaderError string

func (e principalHeaderError) Error() string { return string(e) }
