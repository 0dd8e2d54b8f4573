package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aichecker-backend/internal/shared/server/respond"
)

const authenticatedKey = "authenticated"

// BearerToken requires "Authorization: Bearer <token>" on every request
// except preflights and the paths in open. An empty token disables the check.
func BearerToken(token string, open ...string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	public := make(map[string]struct{}, len(open))
	for _, p := range open {
		public[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if token == "" || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		presented := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(authenticatedKey, true)
		c.Next()
	}
}

// Authenticated reports whether BearerToken accepted the request's token.
func Authenticated(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(authenticatedKey)
}
