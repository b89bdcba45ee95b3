package handlers

import (
	"net/http"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
)

// SearchUsers finds users by username or email fragment
// GET /api/users/search?q=&limit=
func (h *Handlers) SearchUsers(c *gin.Context) {
	limit := util.ParseInt(c.Query("limit"), social.DefaultSearchLimit)
	users, err := h.social.SearchUsers(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// GetUser returns a public profile
// GET /api/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	profile, err := h.social.GetProfile(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"user": profile})
}

// UpdateMe edits the caller's display name, bio or avatar
// PUT /api/users/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var in social.ProfileInput
	if err := c.ShouldBind(&in); err != nil {
		util.Fail(c, apperrors.BadRequest("invalid profile body"))
		return
	}

	updated, err := h.social.UpdateProfile(c.Request.Context(), user, in)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"user": updated})
}

// ToggleFollow follows or unfollows a user
// POST /api/users/:id/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	result, err := h.social.ToggleFollow(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{
		"following":     result.Following,
		"followerCount": result.FollowerCount,
	})
}

// GetFollowers lists who follows a user
// GET /api/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	users, err := h.social.Followers(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// GetFollowing lists who a user follows
// GET /api/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	users, err := h.social.Following(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// GetUserPosts lists the posts of a user the caller may see
// GET /api/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	page := pageFromQuery(c)
	posts, err := h.social.UserPosts(c.Request.Context(), viewer(c), c.Param("id"), page)
	if err != nil {
		util.Fail(c, err)
		return
	}
	respondPosts(c, posts, page)
}

// GetUserCollections lists a user's collections; private ones only for the owner
// GET /api/users/:id/collections
func (h *Handlers) GetUserCollections(c *gin.Context) {
	collections, err := h.social.ListCollections(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"collections": collections, "count": len(collections)})
}
