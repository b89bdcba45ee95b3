package visibility

import (
	"testing"

	"github.com/flexbase/flexbase/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUser() *models.User {
	return &models.User{ID: primitive.NewObjectID()}
}

func TestResolve(t *testing.T) {
	owner := newUser()
	follower := newUser()
	stranger := newUser()
	owner.Followers = []primitive.ObjectID{follower.ID}

	assert.ElementsMatch(t, models.AllVisibilities, Resolve(owner, owner))
	assert.ElementsMatch(t,
		[]models.Visibility{models.VisibilityPublic, models.VisibilityFollowers},
		Resolve(follower, owner))
	assert.Equal(t, []models.Visibility{models.VisibilityPublic}, Resolve(stranger, owner))
	assert.Equal(t, []models.Visibility{models.VisibilityPublic}, Resolve(nil, owner))
}

func TestCanViewPrivateOnlyOwner(t *testing.T) {
	owner := newUser()
	follower := newUser()
	owner.Followers = []primitive.ObjectID{follower.ID}
	post := &models.Post{Owner: owner.ID, Visibility: models.VisibilityPrivate}

	assert.True(t, CanView(owner, owner, post))
	assert.False(t, CanView(follower, owner, post))
	assert.False(t, CanView(newUser(), owner, post))
	assert.False(t, CanView(nil, owner, post))
}

func TestCanViewFollowersOnly(t *testing.T) {
	alice := newUser()
	bob := newUser()
	post := &models.Post{Owner: alice.ID, Visibility: models.VisibilityFollowers}

	assert.False(t, CanView(nil, alice, post))
	assert.True(t, CanView(alice, alice, post))
	assert.False(t, CanView(bob, alice, post))

	alice.Followers = append(alice.Followers, bob.ID)
	assert.True(t, CanView(bob, alice, post))
}

func TestFeedScopes(t *testing.T) {
	viewer := newUser()
	assert.Len(t, FeedScopes(viewer, nil), 1)

	followed := newUser()
	followed.Followers = []primitive.ObjectID{viewer.ID}
	viewer.Following = []primitive.ObjectID{followed.ID}
	scopes := FeedScopes(viewer, []*models.User{followed})
	assert.Len(t, scopes, 2)
	assert.Equal(t, []primitive.ObjectID{viewer.ID}, scopes[0].Owners)
	assert.Empty(t, scopes[0].Visibilities)
	assert.Equal(t, []primitive.ObjectID{followed.ID}, scopes[1].Owners)
	assert.Contains(t, scopes[1].Visibilities, models.VisibilityFollowers)
	assert.NotContains(t, scopes[1].Visibilities, models.VisibilityPrivate)
}

func TestFeedScopesUseOwnerFollowers(t *testing.T) {
	viewer := newUser()
	// viewer.Following was written but the owner's followers set was not
	halfFollowed := newUser()
	viewer.Following = []primitive.ObjectID{halfFollowed.ID}

	scopes := FeedScopes(viewer, []*models.User{halfFollowed})
	assert.Len(t, scopes, 2)
	assert.Equal(t, []primitive.ObjectID{halfFollowed.ID}, scopes[1].Owners)
	assert.Equal(t, []models.Visibility{models.VisibilityPublic}, scopes[1].Visibilities)

	post := &models.Post{Owner: halfFollowed.ID, Visibility: models.VisibilityFollowers}
	assert.False(t, CanView(viewer, halfFollowed, post))
}

func TestProfileScopes(t *testing.T) {
	owner := newUser()
	scopes := ProfileScopes(nil, owner)
	assert.Equal(t, []primitive.ObjectID{owner.ID}, scopes[0].Owners)
	assert.Equal(t, []models.Visibility{models.VisibilityPublic}, scopes[0].Visibilities)
}
