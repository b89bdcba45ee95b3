package middleware

import (
	"strings"

	"github.com/flexbase/flexbase/internal/auth"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireAuth rejects requests without a valid session token. The token is
// read from the Authorization header, then the session cookie.
func RequireAuth(tokens auth.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			util.FailUnauthorized(c)
			return
		}

		user, err := tokens.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Rejected session token",
				logger.WithIP(c.ClientIP()),
				zap.Error(err))
			util.FailUnauthorized(c, "invalid or expired session")
			return
		}

		util.SetUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through
func OptionalAuth(tokens auth.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFromRequest(c); token != "" {
			if user, err := tokens.ValidateToken(c.Request.Context(), token); err == nil {
				util.SetUser(c, user)
			}
		}
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(auth.CookieName); err == nil {
		return cookie
	}
	return ""
}
