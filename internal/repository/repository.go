package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/flexbase/flexbase/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidID           = errors.New("invalid identifier")
	ErrInvalidInput        = errors.New("invalid input")
	ErrSelfFollow          = errors.New("users cannot follow themselves")
	ErrAlreadyInCollection = errors.New("post is already in this collection")
	ErrNotInCollection     = errors.New("post is not in this collection")
)

// DuplicateError reports a unique constraint violation on Field
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// ParseID converts a hex identifier, wrapping ErrInvalidID on failure
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}

// FollowResult is the state after a follow toggle
type FollowResult struct {
	Following      bool `json:"following"`
	FollowerCount  int  `json:"followerCount"`
	FollowingCount int  `json:"followingCount"`
}

// LikeResult is the state after a like toggle
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// PostScope selects posts by owner and visibility. A nil Owners matches any owner.
type PostScope struct {
	Owners       []primitive.ObjectID
	Visibilities []models.Visibility
}

// PostQuery filters posts. Scopes are OR'ed; an empty Scopes matches nothing.
type PostQuery struct {
	Scopes     []PostScope
	Category   string
	Brand      string
	Search     string
	Collection *primitive.ObjectID
	Limit      int
	Offset     int
}

// ProfileUpdate holds the editable profile fields; nil fields are left alone
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}

// CollectionUpdate holds the recognized collection fields; nil fields are left alone
type CollectionUpdate struct {
	Name        *string
	Description *string
	Category    *models.CollectionCategory
	IsPrivate   *bool
}

// IsEmpty reports whether no field is set
func (u CollectionUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Category == nil && u.IsPrivate == nil
}

// UserRepository handles all storage operations for users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error)

	// ToggleFollow adds or removes follower from target's followers and
	// target from follower's following as one unit.
	ToggleFollow(ctx context.Context, follower, target primitive.ObjectID) (FollowResult, error)
	ListFollowers(ctx context.Context, id primitive.ObjectID) ([]*models.User, error)
	ListFollowing(ctx context.Context, id primitive.ObjectID) ([]*models.User, error)
}

// PostRepository handles all storage operations for posts
type PostRepository interface {
	// Create inserts the post and, when post.Collection is set, appends it
	// to that collection's items.
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Find(ctx context.Context, query PostQuery) ([]*models.Post, error)
	CountByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error)

	// Delete detaches the post from its collection, then removes it.
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ToggleLike atomically adds or removes user's like.
	ToggleLike(ctx context.Context, postID, user primitive.ObjectID) (LikeResult, error)
	AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) (int, error)
}

// CollectionRepository handles all storage operations for collections
type CollectionRepository interface {
	Create(ctx context.Context, collection *models.UserCollection) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserCollection, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID, includePrivate bool) ([]*models.UserCollection, error)
	Update(ctx context.Context, id primitive.ObjectID, update CollectionUpdate) (*models.UserCollection, error)

	// Delete clears the collection reference on every member post, then
	// removes the collection. Posts are kept.
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AddItem appends post to the collection and points the post at it,
	// moving it out of any previous collection.
	AddItem(ctx context.Context, collectionID, postID primitive.ObjectID) error
	RemoveItem(ctx context.Context, collectionID, postID primitive.ObjectID) error
}

// Store groups the repositories behind one backend
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Collections() CollectionRepository
	Ping(ctx context.Context) error
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampLimit applies the default and maximum page size
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
