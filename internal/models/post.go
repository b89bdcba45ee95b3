package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxCaptionLength = 1000
	MaxCommentLength = 500
)

// MediaKind is the type of asset a post carries
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media references a stored asset
type Media struct {
	URL  string    `bson:"url" json:"url"`
	Key  string    `bson:"key" json:"-"`
	Kind MediaKind `bson:"kind" json:"kind"`
}

// Like is one user's like on a post. A user appears at most once.
type Like struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Comment is an append-only entry on a post
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	Author *UserSummary `bson:"-" json:"author,omitempty"`
}

// Post is a piece of collector content owned by a single user
type Post struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Owner      primitive.ObjectID  `bson:"owner" json:"owner"`
	Caption    string              `bson:"caption" json:"caption"`
	Media      Media               `bson:"media" json:"media"`
	Tags       []Tag               `bson:"tags" json:"tags"`
	Likes      []Like              `bson:"likes" json:"likes"`
	Comments   []Comment           `bson:"comments" json:"comments"`
	Collection *primitive.ObjectID `bson:"collection,omitempty" json:"collection,omitempty"`
	Visibility Visibility          `bson:"visibility" json:"visibility"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`

	Author *UserSummary `bson:"-" json:"author,omitempty"`
}

// LikeCount returns the number of likes
func (p *Post) LikeCount() int {
	return len(p.Likes)
}

// CommentCount returns the number of comments
func (p *Post) CommentCount() int {
	return len(p.Comments)
}

// IsLikedBy reports whether user has liked the post
func (p *Post) IsLikedBy(user primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l.User == user {
			return true
		}
	}
	return false
}

// IsOwnedBy reports whether user owns the post
func (p *Post) IsOwnedBy(user primitive.ObjectID) bool {
	return p.Owner == user
}
