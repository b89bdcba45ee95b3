package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxCollectionNameLength        = 100
	MaxCollectionDescriptionLength = 500
)

// CollectionCategory classifies a collection
type CollectionCategory string

const (
	CategorySneakers CollectionCategory = "sneakers"
	CategoryWatches  CollectionCategory = "watches"
	CategoryCards    CollectionCategory = "cards"
	CategoryToys     CollectionCategory = "toys"
	CategoryApparel  CollectionCategory = "apparel"
	CategoryArt      CollectionCategory = "art"
	CategoryOther    CollectionCategory = "other"
)

// CollectionCategories lists the accepted categories
var CollectionCategories = []CollectionCategory{
	CategorySneakers, CategoryWatches, CategoryCards, CategoryToys,
	CategoryApparel, CategoryArt, CategoryOther,
}

// ParseCollectionCategory maps input to a category; empty means other
func ParseCollectionCategory(s string) (CollectionCategory, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, true
	}
	for _, c := range CollectionCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// UserCollection is an ordered set of a user's own posts.
// Items only ever contain posts owned by Owner.
type UserCollection struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Owner       primitive.ObjectID   `bson:"owner" json:"owner"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Category    CollectionCategory   `bson:"category" json:"category"`
	IsPrivate   bool                 `bson:"isPrivate" json:"isPrivate"`
	Items       []primitive.ObjectID `bson:"items" json:"items"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Contains reports whether post is an item of the collection
func (c *UserCollection) Contains(post primitive.ObjectID) bool {
	return containsID(c.Items, post)
}
