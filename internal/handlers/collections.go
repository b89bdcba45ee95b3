package handlers

import (
	"net/http"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/util"
	"github.com/gin-gonic/gin"
)

// ListMyCollections lists the caller's collections, private ones included
// GET /api/collections
func (h *Handlers) ListMyCollections(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	collections, err := h.social.ListCollections(c.Request.Context(), user, user.ID.Hex())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"collections": collections, "count": len(collections)})
}

// CreateCollection creates a collection for the caller
// POST /api/collections
func (h *Handlers) CreateCollection(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var in social.CollectionInput
	if err := c.ShouldBind(&in); err != nil {
		util.Fail(c, apperrors.BadRequest("invalid collection body"))
		return
	}

	collection, err := h.social.CreateCollection(c.Request.Context(), user, in)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusCreated, gin.H{"collection": collection})
}

// GetCollection returns a collection with the posts the caller may see
// GET /api/collections/:id
func (h *Handlers) GetCollection(c *gin.Context) {
	view, err := h.social.GetCollection(c.Request.Context(), viewer(c), c.Param("id"), pageFromQuery(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"collection": view})
}

// UpdateCollection applies a partial update
// PUT /api/collections/:id
func (h *Handlers) UpdateCollection(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var patch social.CollectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		util.Fail(c, apperrors.BadRequest("invalid collection body"))
		return
	}

	collection, err := h.social.UpdateCollection(c.Request.Context(), user, c.Param("id"), patch)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"collection": collection})
}

// DeleteCollection removes the caller's collection; its posts are kept
// DELETE /api/collections/:id
func (h *Handlers) DeleteCollection(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := h.social.DeleteCollection(c.Request.Context(), user, c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"message": "collection deleted"})
}

type collectionItemRequest struct {
	PostID string `json:"postId" form:"postId"`
}

// AddCollectionItem adds one of the caller's posts to the collection
// POST /api/collections/:id/items
func (h *Handlers) AddCollectionItem(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req collectionItemRequest
	if err := c.ShouldBind(&req); err != nil || req.PostID == "" {
		util.Fail(c, apperrors.ValidationError("postId", "postId is required"))
		return
	}

	collection, err := h.social.AddToCollection(c.Request.Context(), user, c.Param("id"), req.PostID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"collection": collection})
}

// RemoveCollectionItem takes a post out of the collection
// DELETE /api/collections/:id/items/:postId
func (h *Handlers) RemoveCollectionItem(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	collection, err := h.social.RemoveFromCollection(c.Request.Context(), user, c.Param("id"), c.Param("postId"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c, http.StatusOK, gin.H{"collection": collection})
}
