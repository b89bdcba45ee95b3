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
	"github.com/flexbase/flexbase/internal/telemetry"
	"github.com/flexbase/flexbase/internal/visibility"
	"github.com/flexbase/flexbase/internal/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PostView is a post as returned to a particular viewer
type PostView struct {
	*models.Post
	LikeCount    int  `json:"likeCount"`
	CommentCount int  `json:"commentCount"`
	IsLiked      bool `json:"isLiked"`
	IsOwner      bool `json:"isOwner"`
}

// CreatePostInput carries a new post. Media must already be stored.
type CreatePostInput struct {
	Caption      string
	Tags         []models.Tag
	Visibility   string
	CollectionID string
	Media        models.Media
}

// ExploreFilter narrows the explore listing
type ExploreFilter struct {
	Category string
	Brand    string
	Search   string
}

// CommentResult is the outcome of AddComment
type CommentResult struct {
	Comment      *models.Comment `json:"comment"`
	CommentCount int             `json:"commentCount"`
}

// CreatePost stores a post for actor, links it into the named collection and
// tells the author's followers about it
func (s *Service) CreatePost(ctx context.Context, actor *models.User, in CreatePostInput) (_ *PostView, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceCreatePost(ctx, actor.ID.Hex(), in.Visibility, string(in.Media.Kind))
	defer func() {
		telemetry.RecordServiceError(span, err)
		span.End()
	}()

	caption := strings.TrimSpace(in.Caption)
	var fields []apperrors.FieldError
	switch n := utf8.RuneCountInString(caption); {
	case n == 0:
		fields = append(fields, apperrors.FieldError{Field: "caption", Message: "caption is required"})
	case n > models.MaxCaptionLength:
		fields = append(fields, apperrors.FieldError{
			Field:   "caption",
			Message: fmt.Sprintf("caption must be at most %d characters", models.MaxCaptionLength),
		})
	}
	if in.Media.URL == "" {
		fields = append(fields, apperrors.FieldError{Field: "media", Message: "an image or video is required"})
	}
	vis, ok := models.ParseVisibility(in.Visibility)
	if !ok {
		fields = append(fields, apperrors.FieldError{Field: "visibility", Message: "visibility must be public, private or followers"})
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationErrors(fields)
	}

	post := &models.Post{
		Owner:      actor.ID,
		Caption:    caption,
		Media:      in.Media,
		Tags:       models.NormalizeTags(in.Tags),
		Visibility: vis,
	}

	if strings.TrimSpace(in.CollectionID) != "" {
		collectionID, err := parseID("collectionId", strings.TrimSpace(in.CollectionID))
		if err != nil {
			return nil, err
		}
		collection, err := s.store.Collections().GetByID(ctx, collectionID)
		if err != nil {
			return nil, notFound("collection", err)
		}
		if collection.Owner != actor.ID {
			return nil, apperrors.NotFound("collection")
		}
		post.Collection = &collectionID
	}

	if err := s.store.Posts().Create(ctx, post); err != nil {
		return nil, notFound("collection", err)
	}

	logger.Log.Info("Post created",
		logger.WithUserID(actor.ID.Hex()),
		logger.WithPostID(post.ID.Hex()),
		zap.String("visibility", string(post.Visibility)))
	metrics.RecordPostCreated(string(post.Visibility), string(post.Media.Kind))

	// Every follower hears about the post. Opening it still goes through
	// the visibility check.
	msg := websocket.NewMessage(websocket.MessageTypeNewPost, websocket.NewPostPayload{
		PostID:  post.ID.Hex(),
		Author:  actor.Summary(),
		Message: fmt.Sprintf("%s shared a new post", actor.Username),
	})
	for _, follower := range actor.Followers {
		s.events.PublishToUser(follower.Hex(), msg)
	}

	author := actor.Summary()
	post.Author = &author
	return s.view(actor, post), nil
}

// GetPost returns a post if viewer may see it. Hidden posts are reported as
// not found so their existence is not revealed. viewer may be nil.
func (s *Service) GetPost(ctx context.Context, viewer *models.User, postID string) (*PostView, error) {
	post, _, err := s.visiblePost(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, viewer, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// CanViewPost reports NOT_FOUND unless the user may read the post
func (s *Service) CanViewPost(ctx context.Context, userID, postID string) error {
	var viewer *models.User
	if userID != "" {
		u, err := s.getUser(ctx, userID)
		if err != nil {
			return err
		}
		viewer = u
	}
	_, _, err := s.visiblePost(ctx, viewer, postID)
	return err
}

func (s *Service) visiblePost(ctx context.Context, viewer *models.User, postID string) (*models.Post, *models.User, error) {
	id, err := parseID("postId", postID)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound("post", err)
	}
	owner, err := s.store.Users().GetByID(ctx, post.Owner)
	if err != nil {
		return nil, nil, notFound("post", err)
	}
	if !visibility.CanView(viewer, owner, post) {
		return nil, nil, apperrors.NotFound("post")
	}
	return post, owner, nil
}

// Feed lists the viewer's own posts and the visible posts of everyone they follow
func (s *Service) Feed(ctx context.Context, viewer *models.User, page Page) ([]*PostView, error) {
	page = page.normalize()

	var followed []*models.User
	if len(viewer.Following) > 0 {
		var err error
		followed, err = s.store.Users().GetMany(ctx, viewer.Following)
		if err != nil {
			return nil, err
		}
	}
	return s.find(ctx, viewer, "following", repository.PostQuery{
		Scopes: visibility.FeedScopes(viewer, followed),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// Explore lists public posts, optionally filtered. viewer may be nil.
func (s *Service) Explore(ctx context.Context, viewer *models.User, filter ExploreFilter, page Page) ([]*PostView, error) {
	page = page.normalize()
	return s.find(ctx, viewer, "explore", repository.PostQuery{
		Scopes:   visibility.ExploreScopes(),
		Category: filter.Category,
		Brand:    filter.Brand,
		Search:   filter.Search,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
}

// UserPosts lists ownerID's posts that viewer may see
func (s *Service) UserPosts(ctx context.Context, viewer *models.User, ownerID string, page Page) ([]*PostView, error) {
	owner, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	page = page.normalize()
	return s.find(ctx, viewer, "profile", repository.PostQuery{
		Scopes: visibility.ProfileScopes(viewer, owner),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Service) find(ctx context.Context, viewer *models.User, feedType string, query repository.PostQuery) (_ []*PostView, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceGetFeed(ctx, telemetry.FeedEventAttrs{
		FeedType: feedType,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	defer func() {
		telemetry.RecordServiceError(span, err)
		span.End()
	}()

	posts, err := s.store.Posts().Find(ctx, query)
	if err != nil {
		return nil, err
	}
	telemetry.RecordItemCount(span, len(posts))
	return s.views(ctx, viewer, posts)
}

// ToggleLike likes the post for actor, or removes the like if present.
// Viewers of the post and its owner hear about likes, never unlikes.
func (s *Service) ToggleLike(ctx context.Context, actor *models.User, postID string) (_ repository.LikeResult, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceSocialInteraction(ctx, "like", telemetry.SocialInteractionAttrs{
		UserID:     actor.ID.Hex(),
		TargetType: "post",
		TargetID:   postID,
	})
	defer func() {
		telemetry.RecordServiceError(span, err)
		span.End()
	}()

	post, _, err := s.visiblePost(ctx, actor, postID)
	if err != nil {
		return repository.LikeResult{}, err
	}

	result, err := s.store.Posts().ToggleLike(ctx, post.ID, actor.ID)
	if err != nil {
		return repository.LikeResult{}, notFound("post", err)
	}
	metrics.RecordLike(result.Liked)
	telemetry.RecordToggle(span, result.Liked, result.LikeCount)

	if result.Liked {
		s.events.PublishToPost(post.ID.Hex(), websocket.NewMessage(websocket.MessageTypePostLike, websocket.PostLikePayload{
			PostID:    post.ID.Hex(),
			UserID:    actor.ID.Hex(),
			LikeCount: result.LikeCount,
			Liked:     true,
		}))
		if post.Owner != actor.ID {
			s.notify(post.Owner, websocket.NotificationLike, actor, post.ID,
				fmt.Sprintf("%s liked your post", actor.Username))
		}
	}

	return result, nil
}

// AddComment appends a comment by actor and updates viewers of the post
func (s *Service) AddComment(ctx context.Context, actor *models.User, postID, text string) (_ *CommentResult, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceSocialInteraction(ctx, "comment", telemetry.SocialInteractionAttrs{
		UserID:     actor.ID.Hex(),
		TargetType: "post",
		TargetID:   postID,
	})
	defer func() {
		telemetry.RecordServiceError(span, err)
		span.End()
	}()

	text = strings.TrimSpace(text)
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return nil, apperrors.ValidationError("text", "comment text is required")
	case n > models.MaxCommentLength:
		return nil, apperrors.ValidationError("text",
			fmt.Sprintf("comment must be at most %d characters", models.MaxCommentLength))
	}

	post, _, err := s.visiblePost(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	author := actor.Summary()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      actor.ID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	count, err := s.store.Posts().AddComment(ctx, post.ID, comment)
	if err != nil {
		return nil, notFound("post", err)
	}
	comment.Author = &author
	metrics.RecordComment()

	s.events.PublishToPost(post.ID.Hex(), websocket.NewMessage(websocket.MessageTypePostComment, websocket.PostCommentPayload{
		PostID:       post.ID.Hex(),
		CommentCount: count,
		Comment:      &comment,
	}))
	if post.Owner != actor.ID {
		s.notify(post.Owner, websocket.NotificationComment, actor, post.ID,
			fmt.Sprintf("%s commented on your post", actor.Username))
	}

	return &CommentResult{Comment: &comment, CommentCount: count}, nil
}

// DeletePost removes actor's post, detaching it from its collection first
func (s *Service) DeletePost(ctx context.Context, actor *models.User, postID string) error {
	post, _, err := s.visiblePost(ctx, actor, postID)
	if err != nil {
		return err
	}
	if post.Owner != actor.ID {
		return apperrors.Forbidden("you can only delete your own posts")
	}

	if err := s.store.Posts().Delete(ctx, post.ID); err != nil {
		return notFound("post", err)
	}

	if s.media != nil && post.Media.Key != "" {
		if err := s.media.Delete(ctx, post.Media.Key); err != nil {
			logger.Log.Warn("Failed to delete post media",
				logger.WithPostID(post.ID.Hex()),
				zap.String("key", post.Media.Key),
				zap.Error(err))
		}
	}

	metrics.RecordPostDeleted()
	logger.Log.Info("Post deleted", logger.WithUserID(actor.ID.Hex()), logger.WithPostID(post.ID.Hex()))
	return nil
}

func (s *Service) view(viewer *models.User, post *models.Post) *PostView {
	v := &PostView{
		Post:         post,
		LikeCount:    len(post.Likes),
		CommentCount: len(post.Comments),
	}
	if viewer != nil {
		v.IsLiked = post.IsLikedBy(viewer.ID)
		v.IsOwner = post.IsOwnedBy(viewer.ID)
	}
	return v
}

// views attaches author summaries to posts and their comments
func (s *Service) views(ctx context.Context, viewer *models.User, posts []*models.Post) ([]*PostView, error) {
	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.Owner)
		for _, c := range p.Comments {
			add(c.User)
		}
	}

	authors, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		if a, ok := authors[p.Owner]; ok {
			p.Author = &a
		}
		for i := range p.Comments {
			if a, ok := authors[p.Comments[i].User]; ok {
				p.Comments[i].Author = &a
			}
		}
		out = append(out, s.view(viewer, p))
	}
	return out, nil
}
