package social

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/visibility"
)

// CollectionInput creates a collection
type CollectionInput struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
	IsPrivate   bool   `json:"isPrivate" form:"isPrivate"`
}

// CollectionPatch is a partial update; only non-nil fields are applied
type CollectionPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsPrivate   *bool   `json:"isPrivate"`
}

// CollectionView is a collection with its owner and the items viewer may see
type CollectionView struct {
	*models.UserCollection
	Author  models.UserSummary `json:"author"`
	Posts   []*PostView        `json:"posts"`
	IsOwner bool               `json:"isOwner"`
}

func validateName(name string) *apperrors.FieldError {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return &apperrors.FieldError{Field: "name", Message: "name is required"}
	case n > models.MaxCollectionNameLength:
		return &apperrors.FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", models.MaxCollectionNameLength)}
	}
	return nil
}

func validateDescription(description string) *apperrors.FieldError {
	if utf8.RuneCountInString(description) > models.MaxCollectionDescriptionLength {
		return &apperrors.FieldError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", models.MaxCollectionDescriptionLength),
		}
	}
	return nil
}

var categoryError = apperrors.FieldError{
	Field:   "category",
	Message: "category must be one of sneakers, watches, cards, toys, apparel, art, other",
}

// CreateCollection creates a collection owned by actor
func (s *Service) CreateCollection(ctx context.Context, actor *models.User, in CollectionInput) (*models.UserCollection, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)

	var fields []apperrors.FieldError
	if fe := validateName(name); fe != nil {
		fields = append(fields, *fe)
	}
	if fe := validateDescription(description); fe != nil {
		fields = append(fields, *fe)
	}
	category, ok := models.ParseCollectionCategory(in.Category)
	if !ok {
		fields = append(fields, categoryError)
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationErrors(fields)
	}

	collection := &models.UserCollection{
		Owner:       actor.ID,
		Name:        name,
		Description: description,
		Category:    category,
		IsPrivate:   in.IsPrivate,
	}
	if err := s.store.Collections().Create(ctx, collection); err != nil {
		return nil, err
	}

	metrics.RecordCollectionCreated(string(category), in.IsPrivate)
	logger.Log.Info("Collection created",
		logger.WithUserID(actor.ID.Hex()),
		logger.WithCollectionID(collection.ID.Hex()))
	return collection, nil
}

// collectionFor loads a collection as seen by viewer. Private collections
// of other users are reported as not found.
func (s *Service) collectionFor(ctx context.Context, viewer *models.User, collectionID string) (*models.UserCollection, error) {
	id, err := parseID("collectionId", collectionID)
	if err != nil {
		return nil, err
	}
	collection, err := s.store.Collections().GetByID(ctx, id)
	if err != nil {
		return nil, notFound("collection", err)
	}
	if collection.IsPrivate && (viewer == nil || viewer.ID != collection.Owner) {
		return nil, apperrors.NotFound("collection")
	}
	return collection, nil
}

// ownedCollection loads a collection actor must own
func (s *Service) ownedCollection(ctx context.Context, actor *models.User, collectionID string) (*models.UserCollection, error) {
	collection, err := s.collectionFor(ctx, actor, collectionID)
	if err != nil {
		return nil, err
	}
	if collection.Owner != actor.ID {
		return nil, apperrors.Forbidden("you can only change your own collections")
	}
	return collection, nil
}

// GetCollection returns a collection with the member posts viewer may see.
// viewer may be nil.
func (s *Service) GetCollection(ctx context.Context, viewer *models.User, collectionID string, page Page) (*CollectionView, error) {
	collection, err := s.collectionFor(ctx, viewer, collectionID)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.Users().GetByID(ctx, collection.Owner)
	if err != nil {
		return nil, notFound("collection", err)
	}

	page = page.normalize()
	posts, err := s.find(ctx, viewer, "collection", repository.PostQuery{
		Scopes:     visibility.ProfileScopes(viewer, owner),
		Collection: &collection.ID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &CollectionView{
		UserCollection: collection,
		Author:         owner.Summary(),
		Posts:          posts,
		IsOwner:        viewer != nil && viewer.ID == owner.ID,
	}, nil
}

// ListCollections lists ownerID's collections; private ones only for the owner
func (s *Service) ListCollections(ctx context.Context, viewer *models.User, ownerID string) ([]*models.UserCollection, error) {
	owner, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	includePrivate := viewer != nil && viewer.ID == owner.ID
	return s.store.Collections().ListByOwner(ctx, owner.ID, includePrivate)
}

// UpdateCollection applies the fields present in patch
func (s *Service) UpdateCollection(ctx context.Context, actor *models.User, collectionID string, patch CollectionPatch) (*models.UserCollection, error) {
	collection, err := s.ownedCollection(ctx, actor, collectionID)
	if err != nil {
		return nil, err
	}

	var (
		update repository.CollectionUpdate
		fields []apperrors.FieldError
	)
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if fe := validateName(name); fe != nil {
			fields = append(fields, *fe)
		}
		update.Name = &name
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if fe := validateDescription(description); fe != nil {
			fields = append(fields, *fe)
		}
		update.Description = &description
	}
	if patch.Category != nil {
		category, ok := models.ParseCollectionCategory(*patch.Category)
		if !ok {
			fields = append(fields, categoryError)
		}
		update.Category = &category
	}
	update.IsPrivate = patch.IsPrivate

	if len(fields) > 0 {
		return nil, apperrors.ValidationErrors(fields)
	}
	if update.IsEmpty() {
		return nil, apperrors.ValidationError("body", "no updatable fields provided")
	}

	updated, err := s.store.Collections().Update(ctx, collection.ID, update)
	if err != nil {
		return nil, notFound("collection", err)
	}
	return updated, nil
}

// DeleteCollection removes actor's collection. Member posts are kept and
// lose their collection reference.
func (s *Service) DeleteCollection(ctx context.Context, actor *models.User, collectionID string) error {
	collection, err := s.ownedCollection(ctx, actor, collectionID)
	if err != nil {
		return err
	}
	if err := s.store.Collections().Delete(ctx, collection.ID); err != nil {
		return notFound("collection", err)
	}

	logger.Log.Info("Collection deleted",
		logger.WithUserID(actor.ID.Hex()),
		logger.WithCollectionID(collection.ID.Hex()))
	return nil
}

// AddToCollection adds one of actor's posts to one of actor's collections.
// Adding a post that is already a member is rejected.
func (s *Service) AddToCollection(ctx context.Context, actor *models.User, collectionID, postID string) (*models.UserCollection, error) {
	collection, err := s.ownedCollection(ctx, actor, collectionID)
	if err != nil {
		return nil, err
	}
	post, _, err := s.visiblePost(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if post.Owner != actor.ID {
		return nil, apperrors.Forbidden("you can only collect your own posts")
	}

	if err := s.store.Collections().AddItem(ctx, collection.ID, post.ID); err != nil {
		return nil, notFound("collection", err)
	}
	return s.store.Collections().GetByID(ctx, collection.ID)
}

// RemoveFromCollection removes a post from actor's collection and clears
// the post's reference to it
func (s *Service) RemoveFromCollection(ctx context.Context, actor *models.User, collectionID, postID string) (*models.UserCollection, error) {
	collection, err := s.ownedCollection(ctx, actor, collectionID)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("postId", postID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Collections().RemoveItem(ctx, collection.ID, pid); err != nil {
		return nil, notFound("collection", err)
	}
	return s.store.Collections().GetByID(ctx, collection.ID)
}
