// Package handlers serves the FlexBase JSON API and the server-rendered pages.
// Handlers parse the request, call the social and auth services and report
// failures through util.Fail so the error middleware renders them.
package handlers

import (
	"time"

	"github.com/flexbase/flexbase/internal/auth"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/storage"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/flexbase/flexbase/internal/websocket"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers for the API and pages
type Handlers struct {
	auth     auth.AuthServiceInterface
	social   *social.Service
	uploader storage.Uploader
	store    repository.Store
	hub      *websocket.Hub

	// Session cookie settings for page logins
	cookieSecure bool
	cookieTTL    time.Duration

	startedAt time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(authSvc auth.AuthServiceInterface, socialSvc *social.Service, uploader storage.Uploader, store repository.Store) *Handlers {
	return &Handlers{
		auth:      authSvc,
		social:    socialSvc,
		uploader:  uploader,
		store:     store,
		cookieTTL: auth.DefaultTokenTTL,
		startedAt: time.Now(),
	}
}

// SetHub lets the health check report realtime connection counts
func (h *Handlers) SetHub(hub *websocket.Hub) {
	h.hub = hub
}

// SetSessionCookie configures the cookie page logins store the token in
func (h *Handlers) SetSessionCookie(secure bool, ttl time.Duration) {
	h.cookieSecure = secure
	if ttl > 0 {
		h.cookieTTL = ttl
	}
}

// pageFromQuery reads ?limit= and ?offset=
func pageFromQuery(c *gin.Context) social.Page {
	return social.Page{
		Limit:  util.ParseInt(c.Query("limit"), repository.DefaultLimit),
		Offset: util.ParseInt(c.Query("offset"), 0),
	}
}

// viewer is the authenticated user or nil
func viewer(c *gin.Context) *models.User {
	return util.CurrentUser(c)
}
