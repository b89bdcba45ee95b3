package social

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/telemetry"
	"github.com/flexbase/flexbase/internal/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultSearchLimit   = 10
	MaxSearchLimit       = 50
	MaxDisplayNameLength = 50
	maxAvatarURLLength   = 2048
)

// ProfileInput holds the profile fields a user may edit; nil fields are kept
type ProfileInput struct {
	DisplayName *string `json:"displayName" form:"displayName"`
	Bio         *string `json:"bio" form:"bio"`
	AvatarURL   *string `json:"avatarUrl" form:"avatarUrl"`
}

// ToggleFollow follows targetID for actor, or unfollows when already following.
// Both sides of the relationship change together.
func (s *Service) ToggleFollow(ctx context.Context, actor *models.User, targetID string) (_ repository.FollowResult, err error) {
	ctx, span := telemetry.GetBusinessEvents().TraceSocialInteraction(ctx, "follow", telemetry.SocialInteractionAttrs{
		UserID:     actor.ID.Hex(),
		TargetType: "user",
		TargetID:   targetID,
	})
	defer func() {
		telemetry.RecordServiceError(span, err)
		span.End()
	}()

	target, err := parseID("userId", targetID)
	if err != nil {
		return repository.FollowResult{}, err
	}
	if target == actor.ID {
		return repository.FollowResult{}, apperrors.ValidationError("userId", "you cannot follow yourself")
	}

	result, err := s.store.Users().ToggleFollow(ctx, actor.ID, target)
	if err != nil {
		return repository.FollowResult{}, notFound("user", err)
	}

	metrics.RecordFollow(result.Following)
	telemetry.RecordToggle(span, result.Following, result.FollowerCount)
	logger.Log.Debug("Follow toggled",
		logger.WithUserID(actor.ID.Hex()),
		zap.String("target", target.Hex()),
		zap.Bool("following", result.Following))

	if result.Following {
		s.notify(target, websocket.NotificationFollow, actor, primitive.NilObjectID,
			fmt.Sprintf("%s started following you", actor.Username))
	}
	return result, nil
}

// GetProfile returns the public profile of userID with relationship counts.
// viewer may be nil.
func (s *Service) GetProfile(ctx context.Context, viewer *models.User, userID string) (*models.Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	posts, err := s.store.Posts().CountByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		User:           user,
		FollowerCount:  len(user.Followers),
		FollowingCount: len(user.Following),
		PostCount:      posts,
	}
	if viewer != nil {
		profile.IsSelf = viewer.ID == user.ID
		profile.IsFollowing = user.IsFollowedBy(viewer.ID)
	}
	if !profile.IsSelf {
		user.Email = ""
	}
	return profile, nil
}

// SearchUsers finds users whose username or email contains q
func (s *Service) SearchUsers(ctx context.Context, q string, limit int) ([]models.UserSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.UserSummary{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	users, err := s.store.Users().Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return summaryList(users), nil
}

// UpdateProfile applies the present fields of in to actor's profile
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.User, error) {
	var (
		update repository.ProfileUpdate
		fields []apperrors.FieldError
	)

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if utf8.RuneCountInString(name) > MaxDisplayNameLength {
			fields = append(fields, apperrors.FieldError{Field: "displayName", Message: "display name must be at most 50 characters"})
		}
		update.DisplayName = &name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > models.MaxBioLength {
			fields = append(fields, apperrors.FieldError{Field: "bio", Message: "bio must be at most 300 characters"})
		}
		update.Bio = &bio
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" && !validAvatarURL(avatar) {
			fields = append(fields, apperrors.FieldError{Field: "avatarUrl", Message: "avatar must be an http(s) URL"})
		}
		update.AvatarURL = &avatar
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationErrors(fields)
	}

	user, err := s.store.Users().UpdateProfile(ctx, actor.ID, update)
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

func validAvatarURL(raw string) bool {
	if len(raw) > maxAvatarURLLength {
		return false
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Followers lists the users following userID
func (s *Service) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return s.listRelation(ctx, userID, s.store.Users().ListFollowers)
}

// Following lists the users userID follows
func (s *Service) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return s.listRelation(ctx, userID, s.store.Users().ListFollowing)
}

func (s *Service) listRelation(ctx context.Context, userID string, list func(context.Context, primitive.ObjectID) ([]*models.User, error)) ([]models.UserSummary, error) {
	id, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}
	users, err := list(ctx, id)
	if err != nil {
		return nil, notFound("user", err)
	}
	return summaryList(users), nil
}
