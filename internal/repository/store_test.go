package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/flexbase/flexbase/internal/database"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

// StoreSuite runs the same behavioural checks against every Store backend
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store { return NewMemoryStore() }})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Skipping MongoDB store tests: MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	probe, err := database.Connect(ctx, uri, "flexbase_probe")
	if err != nil {
		t.Skipf("Skipping MongoDB store tests: database not available (%v)", err)
	}
	_ = probe.Close(context.Background())

	transactions := os.Getenv("MONGODB_TRANSACTIONS") == "true"

	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		name := fmt.Sprintf("flexbase_test_%d", time.Now().UnixNano())
		db, err := database.Connect(context.Background(), uri, name)
		require.NoError(t, err)
		require.NoError(t, db.EnsureIndexes(context.Background()))
		t.Cleanup(func() {
			_ = db.Database.Drop(context.Background())
			_ = db.Close(context.Background())
		})
		return NewMongoStore(db, transactions)
	}})
}

func (s *StoreSuite) createUser(username string) *models.User {
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	s.Require().NoError(s.store.Users().Create(s.ctx, u))
	return u
}

func (s *StoreSuite) createPost(owner primitive.ObjectID, vis models.Visibility, tags ...models.Tag) *models.Post {
	p := &models.Post{
		Owner:      owner,
		Caption:    "caption",
		Media:      models.Media{URL: "http://cdn/x.jpg", Kind: models.MediaImage},
		Tags:       tags,
		Visibility: vis,
	}
	s.Require().NoError(s.store.Posts().Create(s.ctx, p))
	return p
}

func (s *StoreSuite) createCollection(owner primitive.ObjectID) *models.UserCollection {
	c := &models.UserCollection{Owner: owner, Name: "Grails", Category: models.CategorySneakers}
	s.Require().NoError(s.store.Collections().Create(s.ctx, c))
	return c
}

// =============================================================================
// USERS
// =============================================================================

func (s *StoreSuite) TestCreateUserDuplicates() {
	s.createUser("alice")

	err := s.store.Users().Create(s.ctx, &models.User{Username: "alice", Email: "other@example.com"})
	var dup *DuplicateError
	s.Require().True(errors.As(err, &dup))
	s.Equal("username", dup.Field)

	err = s.store.Users().Create(s.ctx, &models.User{Username: "alice2", Email: "alice@example.com"})
	s.Require().True(errors.As(err, &dup))
	s.Equal("email", dup.Field)
}

func (s *StoreSuite) TestGetUserLookups() {
	alice := s.createUser("alice")

	byEmail, err := s.store.Users().GetByEmail(s.ctx, "ALICE@example.com")
	s.Require().NoError(err)
	s.Equal(alice.ID, byEmail.ID)

	byName, err := s.store.Users().GetByUsername(s.ctx, " Alice ")
	s.Require().NoError(err)
	s.Equal(alice.ID, byName.ID)

	_, err = s.store.Users().GetByID(s.ctx, primitive.NewObjectID())
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestSearchUsers() {
	s.createUser("alice")
	s.createUser("malik")
	s.createUser("bob")

	users, err := s.store.Users().Search(s.ctx, "LI", 10)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("alice", users[0].Username)
	s.Equal("malik", users[1].Username)

	users, err = s.store.Users().Search(s.ctx, "example.com", 1)
	s.Require().NoError(err)
	s.Len(users, 1)

	users, err = s.store.Users().Search(s.ctx, "a.b*", 10)
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *StoreSuite) TestUpdateProfile() {
	alice := s.createUser("alice")
	bio := "sneakerhead"

	updated, err := s.store.Users().UpdateProfile(s.ctx, alice.ID, ProfileUpdate{Bio: &bio})
	s.Require().NoError(err)
	s.Equal("sneakerhead", updated.Bio)
	s.Equal("alice", updated.Username)
}

func (s *StoreSuite) TestToggleFollowIsSymmetric() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	res, err := s.store.Users().ToggleFollow(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.True(res.Following)
	s.Equal(1, res.FollowerCount)
	s.assertFollows(bob.ID, alice.ID, true)

	res, err = s.store.Users().ToggleFollow(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.False(res.Following)
	s.Equal(0, res.FollowerCount)
	s.assertFollows(bob.ID, alice.ID, false)
}

func (s *StoreSuite) TestSelfFollowRejected() {
	alice := s.createUser("alice")

	_, err := s.store.Users().ToggleFollow(s.ctx, alice.ID, alice.ID)
	s.ErrorIs(err, ErrSelfFollow)

	got, err := s.store.Users().GetByID(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Empty(got.Followers)
	s.Empty(got.Following)
}

func (s *StoreSuite) TestToggleFollowUnknownTarget() {
	alice := s.createUser("alice")

	_, err := s.store.Users().ToggleFollow(s.ctx, alice.ID, primitive.NewObjectID())
	s.ErrorIs(err, ErrNotFound)

	got, err := s.store.Users().GetByID(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Empty(got.Following)
}

func (s *StoreSuite) TestListFollowersAndFollowing() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	carol := s.createUser("carol")

	_, err := s.store.Users().ToggleFollow(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	_, err = s.store.Users().ToggleFollow(s.ctx, carol.ID, alice.ID)
	s.Require().NoError(err)

	followers, err := s.store.Users().ListFollowers(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(followers, 2)

	following, err := s.store.Users().ListFollowing(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Require().Len(following, 1)
	s.Equal(alice.ID, following[0].ID)
}

func (s *StoreSuite) assertFollows(follower, target primitive.ObjectID, want bool) {
	f, err := s.store.Users().GetByID(s.ctx, follower)
	s.Require().NoError(err)
	t, err := s.store.Users().GetByID(s.ctx, target)
	s.Require().NoError(err)

	s.Equal(want, f.IsFollowing(target), "follower side")
	s.Equal(want, t.IsFollowedBy(follower), "target side")
}

// =============================================================================
// POSTS
// =============================================================================

func (s *StoreSuite) TestToggleLikeRoundTrip() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	post := s.createPost(alice.ID, models.VisibilityPublic)

	res, err := s.store.Posts().ToggleLike(s.ctx, post.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(LikeResult{Liked: true, LikeCount: 1}, res)

	res, err = s.store.Posts().ToggleLike(s.ctx, post.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(LikeResult{Liked: false, LikeCount: 0}, res)

	got, err := s.store.Posts().GetByID(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Empty(got.Likes)
}

func (s *StoreSuite) TestToggleLikeDistinctUsers() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	post := s.createPost(alice.ID, models.VisibilityPublic)

	_, err := s.store.Posts().ToggleLike(s.ctx, post.ID, alice.ID)
	s.Require().NoError(err)
	res, err := s.store.Posts().ToggleLike(s.ctx, post.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(2, res.LikeCount)

	_, err = s.store.Posts().ToggleLike(s.ctx, primitive.NewObjectID(), bob.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestAddComment() {
	alice := s.createUser("alice")
	post := s.createPost(alice.ID, models.VisibilityPublic)

	for i := 1; i <= 2; i++ {
		n, err := s.store.Posts().AddComment(s.ctx, post.ID, models.Comment{
			ID:        primitive.NewObjectID(),
			User:      alice.ID,
			Text:      fmt.Sprintf("comment %d", i),
			CreatedAt: time.Now().UTC(),
		})
		s.Require().NoError(err)
		s.Equal(i, n)
	}

	got, err := s.store.Posts().GetByID(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Comments, 2)
	s.Equal("comment 1", got.Comments[0].Text)
	s.Equal("comment 2", got.Comments[1].Text)
}

func (s *StoreSuite) TestCreatePostLinksCollection() {
	alice := s.createUser("alice")
	coll := s.createCollection(alice.ID)

	post := &models.Post{Owner: alice.ID, Caption: "c", Visibility: models.VisibilityPublic, Collection: &coll.ID}
	s.Require().NoError(s.store.Posts().Create(s.ctx, post))

	got, err := s.store.Collections().GetByID(s.ctx, coll.ID)
	s.Require().NoError(err)
	s.Equal([]primitive.ObjectID{post.ID}, got.Items)
}

func (s *StoreSuite) TestDeletePostDetachesFromCollection() {
	alice := s.createUser("alice")
	coll := s.createCollection(alice.ID)
	post := s.createPost(alice.ID, models.VisibilityPublic)
	s.Require().NoError(s.store.Collections().AddItem(s.ctx, coll.ID, post.ID))

	s.Require().NoError(s.store.Posts().Delete(s.ctx, post.ID))

	got, err := s.store.Collections().GetByID(s.ctx, coll.ID)
	s.Require().NoError(err)
	s.Empty(got.Items)

	_, err = s.store.Posts().GetByID(s.ctx, post.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.store.Posts().Delete(s.ctx, post.ID), ErrNotFound)
}

func (s *StoreSuite) TestFindScopesAndFilters() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	public := s.createPost(alice.ID, models.VisibilityPublic,
		models.Tag{Name: "nike", Category: "brand"}, models.Tag{Name: "jordan", Category: "sneakers"})
	private := s.createPost(alice.ID, models.VisibilityPrivate)
	followers := s.createPost(alice.ID, models.VisibilityFollowers)
	bobs := s.createPost(bob.ID, models.VisibilityPublic, models.Tag{Name: "rolex", Category: "brand"})

	ids := func(posts []*models.Post) []primitive.ObjectID {
		out := make([]primitive.ObjectID, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	posts, err := s.store.Posts().Find(s.ctx, PostQuery{})
	s.Require().NoError(err)
	s.Empty(posts)

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: []PostScope{
		{Visibilities: []models.Visibility{models.VisibilityPublic}},
	}})
	s.Require().NoError(err)
	s.ElementsMatch([]primitive.ObjectID{public.ID, bobs.ID}, ids(posts))

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: []PostScope{
		{Owners: []primitive.ObjectID{alice.ID}, Visibilities: []models.Visibility{models.VisibilityPublic, models.VisibilityFollowers}},
	}})
	s.Require().NoError(err)
	s.ElementsMatch([]primitive.ObjectID{public.ID, followers.ID}, ids(posts))

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: []PostScope{
		{Owners: []primitive.ObjectID{alice.ID}},
	}})
	s.Require().NoError(err)
	s.ElementsMatch([]primitive.ObjectID{public.ID, private.ID, followers.ID}, ids(posts))

	anyPublic := []PostScope{{Visibilities: []models.Visibility{models.VisibilityPublic}}}

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: anyPublic, Brand: "Rolex"})
	s.Require().NoError(err)
	s.Equal([]primitive.ObjectID{bobs.ID}, ids(posts))

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: anyPublic, Category: "sneakers"})
	s.Require().NoError(err)
	s.Equal([]primitive.ObjectID{public.ID}, ids(posts))

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: anyPublic, Search: "JORD"})
	s.Require().NoError(err)
	s.Equal([]primitive.ObjectID{public.ID}, ids(posts))

	posts, err = s.store.Posts().Find(s.ctx, PostQuery{Scopes: anyPublic, Limit: 1})
	s.Require().NoError(err)
	s.Len(posts, 1)

	n, err := s.store.Posts().CountByOwner(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), n)
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func (s *StoreSuite) TestDeleteCollectionClearsReferences() {
	alice := s.createUser("alice")
	coll := s.createCollection(alice.ID)
	post := s.createPost(alice.ID, models.VisibilityPublic)
	s.Require().NoError(s.store.Collections().AddItem(s.ctx, coll.ID, post.ID))

	got, err := s.store.Posts().GetByID(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Collection)

	s.Require().NoError(s.store.Collections().Delete(s.ctx, coll.ID))

	got, err = s.store.Posts().GetByID(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Nil(got.Collection)

	_, err = s.store.Collections().GetByID(s.ctx, coll.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestAddItemRejectsDuplicate() {
	alice := s.createUser("alice")
	coll := s.createCollection(alice.ID)
	post := s.createPost(alice.ID, models.VisibilityPublic)

	s.Require().NoError(s.store.Collections().AddItem(s.ctx, coll.ID, post.ID))
	s.ErrorIs(s.store.Collections().AddItem(s.ctx, coll.ID, post.ID), ErrAlreadyInCollection)
	s.ErrorIs(s.store.Collections().AddItem(s.ctx, primitive.NewObjectID(), post.ID), ErrNotFound)
}

func (s *StoreSuite) TestAddItemMovesBetweenCollections() {
	alice := s.createUser("alice")
	first := s.createCollection(alice.ID)
	second := s.createCollection(alice.ID)
	post := s.createPost(alice.ID, models.VisibilityPublic)

	s.Require().NoError(s.store.Collections().AddItem(s.ctx, first.ID, post.ID))
	s.Require().NoError(s.store.Collections().AddItem(s.ctx, second.ID, post.ID))

	f, err := s.store.Collections().GetByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Empty(f.Items)

	p, err := s.store.Posts().GetByID(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Require().NotNil(p.Collection)
	s.Equal(second.ID, *p.Collection)
}

func (s *StoreSuite) TestRemoveItem() {
	alice := s.createUser("alice")
	coll := s.createCollection(alice.ID)
	post := s.createPost(alice.ID, models.VisibilityPublic)
	s.Require().NoError(s.store.Collections().AddItem(s.ctx, coll.ID, post.ID))

	s.Require().NoError(s.store.Collections().RemoveItem(s.ctx, coll.ID, post.ID))
	s.ErrorIs(s.store.Collections().RemoveItem(s.ctx, coll.ID, post.ID), ErrNotInCollection)

	p, err := s.store.Posts().GetByID(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Nil(p.Collection)
}

func (s *StoreSuite) TestUpdateAndListCollections() {
	alice := s.createUser("alice")
	coll := s.createCollection(alice.ID)

	private := true
	name := "Vault"
	updated, err := s.store.Collections().Update(s.ctx, coll.ID, CollectionUpdate{Name: &name, IsPrivate: &private})
	s.Require().NoError(err)
	s.Equal("Vault", updated.Name)
	s.True(updated.IsPrivate)
	s.Equal(models.CategorySneakers, updated.Category)

	public, err := s.store.Collections().ListByOwner(s.ctx, alice.ID, false)
	s.Require().NoError(err)
	s.Empty(public)

	all, err := s.store.Collections().ListByOwner(s.ctx, alice.ID, true)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func TestParseID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ParseID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseID("not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}
