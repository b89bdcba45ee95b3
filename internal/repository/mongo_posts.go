package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/flexbase/flexbase/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// likeRetries bounds the retries when a like toggle loses both conditional updates to concurrent writers
const likeRetries = 3

var errLikeContention = errors.New("like toggle contention")

type mongoPosts struct{ s *MongoStore }

func (r *mongoPosts) coll() *mongo.Collection { return r.s.db.Posts() }

// Create inserts the post and links it into its collection in one transaction
func (r *mongoPosts) Create(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now
	if post.Likes == nil {
		post.Likes = []models.Like{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	if post.Tags == nil {
		post.Tags = []models.Tag{}
	}

	return r.s.withTx(ctx, func(ctx context.Context) error {
		if _, err := r.coll().InsertOne(ctx, post); err != nil {
			return translate(err)
		}
		if post.Collection == nil {
			return nil
		}

		res, err := r.s.db.Collections().UpdateOne(ctx,
			bson.M{"_id": *post.Collection},
			bson.M{"$push": bson.M{"items": post.ID}, "$set": bson.M{"updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetByID gets a post by ID
func (r *mongoPosts) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var post models.Post
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// Find returns posts matching query, newest first
func (r *mongoPosts) Find(ctx context.Context, query PostQuery) ([]*models.Post, error) {
	filter := buildPostFilter(query)
	if filter == nil {
		return []*models.Post{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	defer logSlowQuery("posts.find", time.Now())

	cursor, err := r.coll().Find(ctx, filter, findOptions(query.Limit, query.Offset))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []*models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CountByOwner counts posts owned by owner
func (r *mongoPosts) CountByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.coll().CountDocuments(ctx, bson.M{"owner": owner})
}

// Delete detaches the post from its collection, then removes it
func (r *mongoPosts) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.s.withTx(ctx, func(ctx context.Context) error {
		var post models.Post
		err := r.coll().FindOne(ctx, bson.M{"_id": id},
			options.FindOne().SetProjection(bson.M{"collection": 1})).Decode(&post)
		if err != nil {
			return translate(err)
		}

		if post.Collection != nil {
			if _, err := r.s.db.Collections().UpdateOne(ctx,
				bson.M{"_id": *post.Collection},
				bson.M{"$pull": bson.M{"items": id}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
			); err != nil {
				return err
			}
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

// ToggleLike adds the like when user is absent from the like set and
// removes it otherwise. Each branch is a single conditional update on the
// server, so concurrent toggles by different users never drop each other.
func (r *mongoPosts) ToggleLike(ctx context.Context, postID, user primitive.ObjectID) (LikeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	after := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	for attempt := 0; attempt < likeRetries; attempt++ {
		var post models.Post

		err := r.coll().FindOneAndUpdate(ctx,
			bson.M{"_id": postID, "likes.user": bson.M{"$ne": user}},
			bson.M{"$push": bson.M{"likes": models.Like{User: user, CreatedAt: time.Now().UTC()}}},
			after,
		).Decode(&post)
		if err == nil {
			return LikeResult{Liked: true, LikeCount: len(post.Likes)}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return LikeResult{}, err
		}

		err = r.coll().FindOneAndUpdate(ctx,
			bson.M{"_id": postID, "likes.user": user},
			bson.M{"$pull": bson.M{"likes": bson.M{"user": user}}},
			after,
		).Decode(&post)
		if err == nil {
			return LikeResult{Liked: false, LikeCount: len(post.Likes)}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return LikeResult{}, err
		}

		n, err := r.coll().CountDocuments(ctx, bson.M{"_id": postID})
		if err != nil {
			return LikeResult{}, err
		}
		if n == 0 {
			return LikeResult{}, ErrNotFound
		}
	}
	return LikeResult{}, errLikeContention
}

// AddComment appends comment and returns the new comment count
func (r *mongoPosts) AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var post models.Post
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": comment}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"comments": 1}),
	).Decode(&post)
	if err != nil {
		return 0, translate(err)
	}
	return len(post.Comments), nil
}

// buildPostFilter turns a PostQuery into a mongo filter. It returns nil when
// the query has no scopes and so cannot match anything.
func buildPostFilter(q PostQuery) bson.M {
	scopes := bson.A{}
	for _, scope := range q.Scopes {
		m := bson.M{}
		if scope.Owners != nil {
			m["owner"] = bson.M{"$in": scope.Owners}
		}
		if len(scope.Visibilities) > 0 {
			m["visibility"] = bson.M{"$in": scope.Visibilities}
		}
		scopes = append(scopes, m)
	}
	if len(scopes) == 0 {
		return nil
	}

	and := bson.A{bson.M{"$or": scopes}}

	if q.Collection != nil {
		and = append(and, bson.M{"collection": *q.Collection})
	}
	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		and = append(and, bson.M{"tags.category": category})
	}
	if brand := strings.ToLower(strings.TrimSpace(q.Brand)); brand != "" {
		and = append(and, bson.M{"tags": bson.M{"$elemMatch": bson.M{
			"category": models.BrandTagCategory,
			"name":     brand,
		}}})
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"caption": pattern},
			bson.M{"tags.name": pattern},
		}})
	}

	return bson.M{"$and": and}
}
