package repository

import (
	"context"
	"time"

	"github.com/flexbase/flexbase/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCollections struct{ s *MongoStore }

func (r *mongoCollections) coll() *mongo.Collection { return r.s.db.Collections() }

// Create inserts a new collection
func (r *mongoCollections) Create(ctx context.Context, c *models.UserCollection) error {
	if c == nil {
		return ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Items == nil {
		c.Items = []primitive.ObjectID{}
	}

	_, err := r.coll().InsertOne(ctx, c)
	return translate(err)
}

// GetByID gets a collection by ID
func (r *mongoCollections) GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserCollection, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c models.UserCollection
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListByOwner lists owner's collections, newest first
func (r *mongoCollections) ListByOwner(ctx context.Context, owner primitive.ObjectID, includePrivate bool) ([]*models.UserCollection, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"owner": owner}
	if !includePrivate {
		filter["isPrivate"] = false
	}

	cursor, err := r.coll().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []*models.UserCollection{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies only the fields present in update
func (r *mongoCollections) Update(ctx context.Context, id primitive.ObjectID, update CollectionUpdate) (*models.UserCollection, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.IsPrivate != nil {
		set["isPrivate"] = *update.IsPrivate
	}

	var c models.UserCollection
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// Delete clears back-references on member posts, then removes the collection
func (r *mongoCollections) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.s.withTx(ctx, func(ctx context.Context) error {
		if _, err := r.s.db.Posts().UpdateMany(ctx,
			bson.M{"collection": id},
			bson.M{"$unset": bson.M{"collection": ""}},
		); err != nil {
			return err
		}

		res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddItem appends post to the collection and moves its back-reference here
func (r *mongoCollections) AddItem(ctx context.Context, collectionID, postID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.s.withTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		var post models.Post
		err := r.s.db.Posts().FindOne(ctx, bson.M{"_id": postID},
			options.FindOne().SetProjection(bson.M{"collection": 1})).Decode(&post)
		if err != nil {
			return translate(err)
		}

		res, err := r.coll().UpdateOne(ctx,
			bson.M{"_id": collectionID, "items": bson.M{"$ne": postID}},
			bson.M{"$push": bson.M{"items": postID}, "$set": bson.M{"updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			n, err := r.coll().CountDocuments(ctx, bson.M{"_id": collectionID})
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrAlreadyInCollection
		}

		if post.Collection != nil && *post.Collection != collectionID {
			if _, err := r.coll().UpdateOne(ctx,
				bson.M{"_id": *post.Collection},
				bson.M{"$pull": bson.M{"items": postID}, "$set": bson.M{"updatedAt": now}},
			); err != nil {
				return err
			}
		}

		_, err = r.s.db.Posts().UpdateOne(ctx,
			bson.M{"_id": postID},
			bson.M{"$set": bson.M{"collection": collectionID}},
		)
		return err
	})
}

// RemoveItem removes post from the collection and clears its back-reference
func (r *mongoCollections) RemoveItem(ctx context.Context, collectionID, postID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.s.withTx(ctx, func(ctx context.Context) error {
		res, err := r.coll().UpdateOne(ctx,
			bson.M{"_id": collectionID, "items": postID},
			bson.M{"$pull": bson.M{"items": postID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			n, err := r.coll().CountDocuments(ctx, bson.M{"_id": collectionID})
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrNotInCollection
		}

		_, err = r.s.db.Posts().UpdateOne(ctx,
			bson.M{"_id": postID, "collection": collectionID},
			bson.M{"$unset": bson.M{"collection": ""}},
		)
		return err
	})
}
