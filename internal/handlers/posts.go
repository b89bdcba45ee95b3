package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/storage"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondPosts(c *gin.Context, posts []*social.PostView, page social.Page) {
	util.OK(c, http.StatusOK, gin.H{
		"posts":  posts,
		"count":  len(posts),
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// GetFeed lists the caller's posts and those of the people they follow
// GET /api/posts/feed
func (h *Handlers) GetFeed(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	page := pageFromQuery(c)
	posts, err := h.social.Feed(c.Request.Context(), user, page)
	if err != nil {
		util.Fail(c, err)
		return
	}
	respondPosts(c, posts, page)
}

// GetExplore lists public posts filtered by tag category, brand or text
// GET /api/posts/explore?category=&brand=&search=
func (h *Handlers) GetExplore(c *gin.Context) {
	page := pageFromQuery(c)
	posts, err := h.social.Explore(c.Request.Context(), viewer(c), exploreFilter(c), page)
	if err != nil {
		util.Fail(c, err)
		return
	}
	respondPosts(c, posts, page)
}

func exploreFilter(c *gin.Context) social.ExploreFilter {
	return social.ExploreFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Brand:    strings.TrimSpace(c.Query("brand")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
}

// CreatePost uploads the media file and creates the post
// POST /api/posts (multipart: media, caption, tags, visibility, collectionId)
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	post, err := h.createPost(c, user)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusCreated, gin.H{"post": post})
}

// createPost is shared by the API and the create page
func (h *Handlers) createPost(c *gin.Context, user *models.User) (*social.PostView, error) {
	ctx := c.Request.Context()

	upload, err := h.uploadMedia(c, user)
	if err != nil {
		return nil, err
	}

	post, err := h.social.CreatePost(ctx, user, social.CreatePostInput{
		Caption:      c.PostForm("caption"),
		Tags:         parseTags(c.PostFormArray("tags")),
		Visibility:   c.DefaultPostForm("visibility", string(models.VisibilityPublic)),
		CollectionID: c.PostForm("collectionId"),
		Media:        upload.Media(),
	})
	if err != nil {
		h.discardMedia(upload.Key)
		return nil, err
	}
	return post, nil
}

func (h *Handlers) uploadMedia(c *gin.Context, user *models.User) (*storage.UploadResult, error) {
	header, err := c.FormFile("media")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, apperrors.ValidationError("media", "an image or video is required")
		}
		return nil, apperrors.BadRequest("could not read upload")
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.InternalError("could not read upload", err)
	}
	defer file.Close()

	result, err := h.uploader.Upload(c.Request.Context(), file, header, user.ID.Hex())
	if err != nil {
		metrics.RecordMediaUpload("", 0, err)
		return nil, err
	}
	metrics.RecordMediaUpload(string(result.Kind), result.Size, nil)
	return result, nil
}

// discardMedia removes media whose post was never created. It outlives the
// request so a cancelled client doesn't leave the object behind.
func (h *Handlers) discardMedia(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.uploader.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete orphaned media",
			zap.String("key", key),
			zap.Error(err))
	}
}

// parseTags accepts repeated fields, comma lists and JSON arrays of names
// or {name, category} objects
func parseTags(values []string) []models.Tag {
	var tags []models.Tag
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if strings.HasPrefix(raw, "[") {
			var names []string
			if err := json.Unmarshal([]byte(raw), &names); err == nil {
				for _, n := range names {
					tags = append(tags, models.ParseTag(n))
				}
				continue
			}
			var objects []models.Tag
			if err := json.Unmarshal([]byte(raw), &objects); err == nil {
				tags = append(tags, objects...)
				continue
			}
		}
		tags = append(tags, models.ParseTagList(raw)...)
	}
	return tags
}

// GetPost returns a post the caller may see
// GET /api/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.social.GetPost(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"post": post})
}

// DeletePost removes the caller's post
// DELETE /api/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := h.social.DeletePost(c.Request.Context(), user, c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"message": "post deleted"})
}

// ToggleLike likes or unlikes a post
// POST /api/posts/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	result, err := h.social.ToggleLike(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{
		"liked":     result.Liked,
		"likeCount": result.LikeCount,
	})
}

type commentRequest struct {
	Text string `json:"text" form:"text"`
}

// AddComment comments on a post
// POST /api/posts/:id/comment
func (h *Handlers) AddComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBind(&req); err != nil {
		util.Fail(c, apperrors.BadRequest("invalid comment body"))
		return
	}

	result, err := h.social.AddComment(c.Request.Context(), user, c.Param("id"), req.Text)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusCreated, gin.H{
		"comment":      result.Comment,
		"commentCount": result.CommentCount,
	})
}
