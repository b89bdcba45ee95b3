package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/flexbase/flexbase/internal/auth"
	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
)

// render fills the fields every page layout reads
func render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["CurrentUser"] = viewer(c)
	c.HTML(status, name, data)
}

// pageUser returns the signed in user or redirects to the login page
func pageUser(c *gin.Context) (*models.User, bool) {
	user := viewer(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
		return nil, false
	}
	return user, true
}

// nextOffset is set only when the page came back full
func nextOffset(page social.Page, count int) int {
	limit := repository.ClampLimit(page.Limit)
	if count < limit {
		return 0
	}
	return max(page.Offset, 0) + limit
}

// safeNext keeps post-login redirects on this site. Browsers read "//" and
// "/\" as protocol-relative, and some strip control characters first.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.ContainsAny(next, "\\\t\r\n") {
		return "/feed"
	}
	if strings.HasPrefix(next, "//") {
		return "/feed"
	}
	return next
}

// HomePage sends signed in users to their feed and everyone else to explore
// GET /
func (h *Handlers) HomePage(c *gin.Context) {
	if viewer(c) != nil {
		c.Redirect(http.StatusFound, "/feed")
		return
	}
	c.Redirect(http.StatusFound, "/explore")
}

// FeedPage GET /feed
func (h *Handlers) FeedPage(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}

	page := pageFromQuery(c)
	posts, err := h.social.Feed(c.Request.Context(), user, page)
	if err != nil {
		util.Fail(c, err)
		return
	}
	render(c, http.StatusOK, "feed.html", "Feed", gin.H{
		"Posts":      posts,
		"NextOffset": nextOffset(page, len(posts)),
	})
}

// ExplorePage GET /explore
func (h *Handlers) ExplorePage(c *gin.Context) {
	page := pageFromQuery(c)
	filter := exploreFilter(c)
	posts, err := h.social.Explore(c.Request.Context(), viewer(c), filter, page)
	if err != nil {
		util.Fail(c, err)
		return
	}
	render(c, http.StatusOK, "explore.html", "Explore", gin.H{
		"Posts":      posts,
		"Filter":     filter,
		"NextOffset": nextOffset(page, len(posts)),
	})
}

// ProfilePage GET /profile/:id
func (h *Handlers) ProfilePage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if id == "me" {
		user, ok := pageUser(c)
		if !ok {
			return
		}
		id = user.ID.Hex()
	}

	profile, err := h.social.GetProfile(ctx, viewer(c), id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	posts, err := h.social.UserPosts(ctx, viewer(c), id, pageFromQuery(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	collections, err := h.social.ListCollections(ctx, viewer(c), id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	render(c, http.StatusOK, "profile.html", "@"+profile.Username, gin.H{
		"Profile":     profile,
		"Posts":       posts,
		"Collections": collections,
	})
}

// FollowAction POST /profile/:id/follow
func (h *Handlers) FollowAction(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}
	if _, err := h.social.ToggleFollow(c.Request.Context(), user, c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile/"+c.Param("id"))
}

// CollectionPage GET /collection/:id
func (h *Handlers) CollectionPage(c *gin.Context) {
	view, err := h.social.GetCollection(c.Request.Context(), viewer(c), c.Param("id"), pageFromQuery(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	render(c, http.StatusOK, "collection.html", view.Name, gin.H{"Collection": view})
}

// PostPage GET /post/:id
func (h *Handlers) PostPage(c *gin.Context) {
	post, err := h.social.GetPost(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	render(c, http.StatusOK, "post.html", "Post", gin.H{"Post": post})
}

// LikeAction POST /post/:id/like
func (h *Handlers) LikeAction(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}
	if _, err := h.social.ToggleLike(c.Request.Context(), user, c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/post/"+c.Param("id"))
}

// CommentAction POST /post/:id/comment
func (h *Handlers) CommentAction(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}
	if _, err := h.social.AddComment(c.Request.Context(), user, c.Param("id"), c.PostForm("text")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/post/"+c.Param("id"))
}

// DeleteAction POST /post/:id/delete
func (h *Handlers) DeleteAction(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}
	if err := h.social.DeletePost(c.Request.Context(), user, c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile/"+user.ID.Hex())
}

func (h *Handlers) createForm(c *gin.Context, user *models.User, status int, data gin.H) {
	collections, err := h.social.ListCollections(c.Request.Context(), user, user.ID.Hex())
	if err != nil {
		util.Fail(c, err)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["Collections"] = collections
	data["Visibilities"] = models.AllVisibilities
	if _, ok := data["Visibility"]; !ok {
		data["Visibility"] = string(models.VisibilityPublic)
	}
	if _, ok := data["CollectionID"]; !ok {
		data["CollectionID"] = c.Query("collection")
	}
	render(c, status, "create.html", "New post", data)
}

// CreatePage GET /create
func (h *Handlers) CreatePage(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}
	h.createForm(c, user, http.StatusOK, nil)
}

// CreateAction POST /create
func (h *Handlers) CreateAction(c *gin.Context) {
	user, ok := pageUser(c)
	if !ok {
		return
	}

	post, err := h.createPost(c, user)
	if err != nil {
		apiErr := apperrors.From(err)
		if util.StatusOf(apiErr) != http.StatusBadRequest && util.StatusOf(apiErr) != http.StatusNotFound {
			util.Fail(c, err)
			return
		}
		h.createForm(c, user, util.StatusOf(apiErr), gin.H{
			"Error":        apiErr.Message,
			"Caption":      c.PostForm("caption"),
			"Tags":         c.PostForm("tags"),
			"Visibility":   c.PostForm("visibility"),
			"CollectionID": c.PostForm("collectionId"),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/post/"+post.ID.Hex())
}

// LoginPage GET /login
func (h *Handlers) LoginPage(c *gin.Context) {
	if viewer(c) != nil {
		c.Redirect(http.StatusFound, "/feed")
		return
	}
	render(c, http.StatusOK, "login.html", "Log in", gin.H{"Next": c.Query("next")})
}

// LoginAction POST /login
func (h *Handlers) LoginAction(c *gin.Context) {
	req := auth.LoginRequest{
		Identifier: c.PostForm("identifier"),
		Password:   c.PostForm("password"),
	}
	resp, err := h.auth.Login(c.Request.Context(), req)
	metrics.RecordAuthAttempt("login", err)
	if err != nil {
		apiErr := apperrors.From(err)
		if util.StatusOf(apiErr) >= http.StatusInternalServerError {
			util.Fail(c, err)
			return
		}
		render(c, util.StatusOf(apiErr), "login.html", "Log in", gin.H{
			"Error":      apiErr.Message,
			"Identifier": req.Identifier,
			"Next":       c.Query("next"),
		})
		return
	}

	h.setSessionCookie(c, resp)
	c.Redirect(http.StatusSeeOther, safeNext(c.Query("next")))
}

// SignupPage GET /signup
func (h *Handlers) SignupPage(c *gin.Context) {
	if viewer(c) != nil {
		c.Redirect(http.StatusFound, "/feed")
		return
	}
	render(c, http.StatusOK, "signup.html", "Sign up", nil)
}

// SignupAction POST /signup
func (h *Handlers) SignupAction(c *gin.Context) {
	req := auth.RegisterRequest{
		Username:    c.PostForm("username"),
		Email:       c.PostForm("email"),
		Password:    c.PostForm("password"),
		DisplayName: c.PostForm("displayName"),
	}
	resp, err := h.auth.Register(c.Request.Context(), req)
	metrics.RecordAuthAttempt("signup", err)
	if err != nil {
		apiErr := apperrors.From(err)
		if util.StatusOf(apiErr) >= http.StatusInternalServerError {
			util.Fail(c, err)
			return
		}
		data := gin.H{
			"Fields":      apiErr.Fields,
			"Username":    req.Username,
			"Email":       req.Email,
			"DisplayName": req.DisplayName,
		}
		if len(apiErr.Fields) == 0 {
			data["Error"] = apiErr.Message
		}
		render(c, util.StatusOf(apiErr), "signup.html", "Sign up", data)
		return
	}

	h.setSessionCookie(c, resp)
	c.Redirect(http.StatusSeeOther, "/feed")
}

// LogoutAction POST /logout
func (h *Handlers) LogoutAction(c *gin.Context) {
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}
