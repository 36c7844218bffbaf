package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/logging"
	"github.com/dmitrijs2005/coffeedia/internal/server/auth"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
)

// bearerToken extracts the token from the Authorization header, or "".
func bearerToken(c *gin.Context) string {
	h := c.GetHeader(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
}

// requireAuth rejects requests without a valid access token with 401 and
// stores the caller's id and username in the gin context.
func requireAuth(parse func(string) (*auth.Claims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			fail(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := parse(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Subject)
		c.Next()
	}
}

// requestLogger logs one line per request, tagged with the client's
// request id when it sent one.
func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Info(c.Request.Context(), "request",
			"request_id", c.GetHeader(common.RequestIDHeaderName),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
