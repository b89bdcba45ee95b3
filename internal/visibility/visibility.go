// Package visibility decides which posts a viewer may read.
package visibility

import (
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resolve returns the visibility labels viewer may see on owner's posts.
// viewer may be nil for anonymous requests. Results depend on the current
// follow graph and must be computed per request.
func Resolve(viewer, owner *models.User) []models.Visibility {
	switch {
	case viewer != nil && viewer.ID == owner.ID:
		return []models.Visibility{models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityFollowers}
	case viewer != nil && owner.IsFollowedBy(viewer.ID):
		return []models.Visibility{models.VisibilityPublic, models.VisibilityFollowers}
	default:
		return []models.Visibility{models.VisibilityPublic}
	}
}

// CanView reports whether viewer may read post owned by owner
func CanView(viewer, owner *models.User, post *models.Post) bool {
	for _, v := range Resolve(viewer, owner) {
		if post.Visibility == v {
			return true
		}
	}
	return false
}

// ProfileScopes selects owner's posts visible to viewer
func ProfileScopes(viewer, owner *models.User) []repository.PostScope {
	return []repository.PostScope{{
		Owners:       []primitive.ObjectID{owner.ID},
		Visibilities: Resolve(viewer, owner),
	}}
}

// FeedScopes selects the viewer's own posts plus the posts of followed,
// the users the viewer follows. The followers label is granted from each
// owner's followers set, the same rule CanView applies, so a follow that
// only half landed never shows a post that opening it would hide.
func FeedScopes(viewer *models.User, followed []*models.User) []repository.PostScope {
	scopes := []repository.PostScope{{Owners: []primitive.ObjectID{viewer.ID}}}

	var trusted, public []primitive.ObjectID
	for _, owner := range followed {
		switch {
		case owner.ID == viewer.ID:
		case owner.IsFollowedBy(viewer.ID):
			trusted = append(trusted, owner.ID)
		default:
			public = append(public, owner.ID)
		}
	}
	if len(trusted) > 0 {
		scopes = append(scopes, repository.PostScope{
			Owners:       trusted,
			Visibilities: []models.Visibility{models.VisibilityPublic, models.VisibilityFollowers},
		})
	}
	if len(public) > 0 {
		scopes = append(scopes, repository.PostScope{
			Owners:       public,
			Visibilities: []models.Visibility{models.VisibilityPublic},
		})
	}
	return scopes
}

// ExploreScopes selects public posts from anyone
func ExploreScopes() []repository.PostScope {
	return []repository.PostScope{{Visibilities: []models.Visibility{models.VisibilityPublic}}}
}
