package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flexbase/flexbase/internal/models"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON accepts Unix milliseconds or an RFC3339 string
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}
	if str == "" {
		ft.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always writes RFC3339
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"

	// Client to server room membership
	MessageTypeJoinPost  = "join_post"
	MessageTypeLeavePost = "leave_post"

	// Server to client events
	MessageTypeNotification = "notification"
	MessageTypePostLike     = "post_like"
	MessageTypePostComment  = "post_comment"
	MessageTypeNewPost      = "new_post"
)

// Notification kinds carried in NotificationPayload.Kind
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is an optional client supplied identifier echoed in replies
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}
	if raw, ok := m.Payload.(json.RawMessage); ok {
		return json.Unmarshal(raw, target)
	}

	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// RoomPayload is the body of join_post and leave_post
type RoomPayload struct {
	PostID string `json:"post_id"`
}

// NotificationPayload is delivered to a user's personal channel
type NotificationPayload struct {
	Kind      string             `json:"kind"`
	From      models.UserSummary `json:"from"`
	PostID    string             `json:"post_id,omitempty"`
	Message   string             `json:"message"`
	CreatedAt int64              `json:"created_at"`
}

// NewPostPayload is delivered to each follower when an author posts
type NewPostPayload struct {
	PostID  string             `json:"post_id"`
	Author  models.UserSummary `json:"author"`
	Message string             `json:"message"`
}

// PostLikePayload updates viewers of a post after a like toggle
type PostLikePayload struct {
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	LikeCount int    `json:"like_count"`
	Liked     bool   `json:"liked"`
}

// PostCommentPayload updates viewers of a post after a new comment
type PostCommentPayload struct {
	PostID       string          `json:"post_id"`
	CommentCount int             `json:"comment_count"`
	Comment      *models.Comment `json:"comment"`
}
