package social

import (
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notify sends a notification to recipient's personal channel. Delivery is
// best-effort: recipients who are offline miss it.
func (s *Service) notify(recipient primitive.ObjectID, kind string, from *models.User, postID primitive.ObjectID, message string) {
	payload := websocket.NotificationPayload{
		Kind:      kind,
		From:      from.Summary(),
		Message:   message,
		CreatedAt: s.now().UnixMilli(),
	}
	if !postID.IsZero() {
		payload.PostID = postID.Hex()
	}
	s.events.PublishToUser(recipient.Hex(), websocket.NewMessage(websocket.MessageTypeNotification, payload))
}
