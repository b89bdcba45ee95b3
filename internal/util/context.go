package util

import (
	"github.com/flexbase/flexbase/internal/models"
	"github.com/gin-gonic/gin"
)

// UserKey is the gin context key holding the authenticated *models.User
const UserKey = "user"

// SetUser stores the authenticated user on the request
func SetUser(c *gin.Context, user *models.User) {
	c.Set(UserKey, user)
	c.Set("user_id", user.ID.Hex())
}

// CurrentUser returns the authenticated user, or nil for anonymous requests
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, the request fails with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user := CurrentUser(c)
	if user == nil {
		FailUnauthorized(c)
		return nil, false
	}
	return user, true
}
