package handlers

import (
	"net/http"

	"github.com/flexbase/flexbase/internal/auth"
	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
)

// Signup registers a new account and returns its session token
// POST /api/auth/signup
func (h *Handlers) Signup(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		util.Fail(c, apperrors.BadRequest("invalid signup body"))
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	metrics.RecordAuthAttempt("signup", err)
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.OK(c, http.StatusCreated, gin.H{
		"token":     resp.Token,
		"user":      resp.User,
		"expiresAt": resp.ExpiresAt,
	})
}

// Login authenticates with email or username and password
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		util.Fail(c, apperrors.BadRequest("invalid login body"))
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	metrics.RecordAuthAttempt("login", err)
	if err != nil {
		logger.Log.Debug("Login failed", logger.WithIP(c.ClientIP()))
		util.Fail(c, err)
		return
	}

	util.OK(c, http.StatusOK, gin.H{
		"token":     resp.Token,
		"user":      resp.User,
		"expiresAt": resp.ExpiresAt,
	})
}

// Logout clears the session cookie. Bearer tokens are stateless and simply
// dropped by the client.
// POST /api/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	util.OK(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	profile, err := h.social.GetProfile(c.Request.Context(), user, user.ID.Hex())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"user": profile})
}

func (h *Handlers) setSessionCookie(c *gin.Context, resp *auth.AuthResponse) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, resp.Token, int(h.cookieTTL.Seconds()), "/", "", h.cookieSecure, true)
}

func (h *Handlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.cookieSecure, true)
}
