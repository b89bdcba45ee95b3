// Package social implements FlexBase's content and social graph operations:
// posts, likes, comments, collections and follows. Every read is filtered
// through the visibility resolver and every state change that other users
// care about is published to the realtime layer.
package social

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/flexbase/flexbase/internal/errors"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaRemover deletes stored media objects
type MediaRemover interface {
	Delete(ctx context.Context, key string) error
}

// Service runs content and social graph operations against a store
type Service struct {
	store  repository.Store
	events websocket.Publisher
	media  MediaRemover
	now    func() time.Time
}

// NewService creates a Service. events may be nil, in which case nothing is published.
func NewService(store repository.Store, events websocket.Publisher) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// SetMediaRemover lets DeletePost clean up the post's stored media
func (s *Service) SetMediaRemover(m MediaRemover) {
	s.media = m
}

// Page is an offset window over a newest-first listing
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	p.Limit = repository.ClampLimit(p.Limit)
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type nopPublisher struct{}

func (nopPublisher) PublishToUser(string, *websocket.Message) {}
func (nopPublisher) PublishToPost(string, *websocket.Message) {}

// parseID parses a path or body identifier, naming field in the error
func parseID(field, hex string) (primitive.ObjectID, error) {
	id, err := repository.ParseID(hex)
	if err != nil {
		e := apperrors.InvalidID(field)
		e.Err = err
		return primitive.NilObjectID, e
	}
	return id, nil
}

// notFound converts repository.ErrNotFound into a NOT_FOUND naming resource
func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		e := apperrors.NotFound(resource)
		e.Err = err
		return e
	}
	return err
}

func (s *Service) getUser(ctx context.Context, hex string) (*models.User, error) {
	id, err := parseID("userId", hex)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

func (s *Service) summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.store.Users().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func summaryList(users []*models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out
}
