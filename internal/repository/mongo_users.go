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

type mongoUsers struct{ s *MongoStore }

func (r *mongoUsers) coll() *mongo.Collection { return r.s.db.Users() }

// Create inserts a new user
func (r *mongoUsers) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}

	_, err := r.coll().InsertOne(ctx, user)
	return translate(err)
}

// GetByID gets a user by ID
func (r *mongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail gets a user by normalized email
func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// GetByUsername gets a user by normalized username
func (r *mongoUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": models.NormalizeUsername(username)})
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := r.coll().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetMany gets users by IDs. Missing IDs are skipped.
func (r *mongoUsers) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
}

// Search matches a case-insensitive substring of username or email
func (r *mongoUsers) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(query)), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": pattern},
		bson.M{"email": pattern},
	}}

	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *mongoUsers) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	defer logSlowQuery("users.find", time.Now())

	cursor, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile sets the provided profile fields
func (r *mongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.DisplayName != nil {
		set["displayName"] = *update.DisplayName
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.AvatarURL != nil {
		set["avatarUrl"] = *update.AvatarURL
	}

	var user models.User
	err := r.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ToggleFollow flips membership of follower in target's followers. Both
// sides are written in one transaction. The target side decides the
// direction with a conditional update so concurrent toggles cannot both win.
func (r *mongoUsers) ToggleFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (FollowResult, error) {
	if followerID == targetID {
		return FollowResult{}, ErrSelfFollow
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var result FollowResult
	err := r.s.withTx(ctx, func(ctx context.Context) error {
		users := r.coll()
		now := time.Now().UTC()
		after := options.FindOneAndUpdate().SetReturnDocument(options.After)

		if err := users.FindOne(ctx, bson.M{"_id": followerID},
			options.FindOne().SetProjection(bson.M{"_id": 1})).Err(); err != nil {
			return translate(err)
		}

		var target models.User
		following := true
		err := users.FindOneAndUpdate(ctx,
			bson.M{"_id": targetID, "followers": bson.M{"$ne": followerID}},
			bson.M{"$addToSet": bson.M{"followers": followerID}, "$set": bson.M{"updatedAt": now}},
			after,
		).Decode(&target)

		if errors.Is(err, mongo.ErrNoDocuments) {
			following = false
			err = users.FindOneAndUpdate(ctx,
				bson.M{"_id": targetID, "followers": followerID},
				bson.M{"$pull": bson.M{"followers": followerID}, "$set": bson.M{"updatedAt": now}},
				after,
			).Decode(&target)
		}
		if err != nil {
			return translate(err)
		}

		op := "$addToSet"
		if !following {
			op = "$pull"
		}
		if _, err := users.UpdateOne(ctx,
			bson.M{"_id": followerID},
			bson.M{op: bson.M{"following": targetID}, "$set": bson.M{"updatedAt": now}},
		); err != nil {
			return err
		}

		result = FollowResult{
			Following:      following,
			FollowerCount:  len(target.Followers),
			FollowingCount: len(target.Following),
		}
		return nil
	})
	if err != nil {
		return FollowResult{}, translate(err)
	}
	return result, nil
}

// ListFollowers returns the users following id
func (r *mongoUsers) ListFollowers(ctx context.Context, id primitive.ObjectID) ([]*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, user.Followers)
}

// ListFollowing returns the users id follows
func (r *mongoUsers) ListFollowing(ctx context.Context, id primitive.ObjectID) ([]*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, user.Following)
}
