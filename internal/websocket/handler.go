package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/flexbase/flexbase/internal/auth"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthCookieName is the cookie the page routes store the session token in
const AuthCookieName = auth.CookieName

// TokenValidator resolves a bearer token to its user
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// RoomAuthorizer decides whether userID may watch postID's room
type RoomAuthorizer func(ctx context.Context, userID, postID string) error

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub            *Hub
	tokens         TokenValidator
	authorizeRoom  RoomAuthorizer
	allowedOrigins []string
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, tokens TokenValidator) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
	}
}

// SetRoomAuthorizer installs the check run before a client joins a post room
func (h *Handler) SetRoomAuthorizer(fn RoomAuthorizer) {
	h.authorizeRoom = fn
}

// SetAllowedOrigins restricts the Origin header accepted on upgrade.
// An empty list accepts any origin.
func (h *Handler) SetAllowedOrigins(origins []string) {
	h.allowedOrigins = origins
}

// HandleWebSocket handles WebSocket upgrade requests.
// The token is read from ?token=, the Authorization header, or the session cookie.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", logger.WithIP(c.ClientIP()), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"code":    "UNAUTHORIZED",
			"message": "authentication required",
		})
		return
	}

	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if len(h.allowedOrigins) == 0 {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(user.ID.Hex()), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID.Hex(), user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	if !h.hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to FlexBase!",
		Data: map[string]interface{}{
			"user_id":     client.UserID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump()
}

// authenticateRequest extracts and validates the session token from the request
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	if h.tokens == nil {
		return nil, errors.New("no token validator configured")
	}

	token := c.Query("token")
	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && bearer != "" {
		token = bearer
	}
	if token == "" {
		if cookie, err := c.Cookie(AuthCookieName); err == nil {
			token = cookie
		}
	}
	if token == "" {
		return nil, errors.New("no authentication token provided")
	}

	return h.tokens.ValidateToken(c.Request.Context(), token)
}

// RegisterDefaultHandlers registers the post room membership handlers
func (h *Handler) RegisterDefaultHandlers() {
	h.hub.RegisterHandler(MessageTypeJoinPost, func(client *Client, msg *Message) error {
		var room RoomPayload
		if err := msg.ParsePayload(&room); err != nil || room.PostID == "" {
			return fmt.Errorf("post_id is required")
		}
		if h.authorizeRoom != nil {
			if err := h.authorizeRoom(client.ctx, client.UserID, room.PostID); err != nil {
				return fmt.Errorf("post not found")
			}
		}
		if !h.hub.JoinRoom(client, room.PostID) {
			return fmt.Errorf("connection is not registered")
		}
		return client.Send(NewReply(msg, MessageTypeSystem, SystemPayload{
			Event: "joined_post",
			Data:  map[string]interface{}{"post_id": room.PostID},
		}))
	})

	h.hub.RegisterHandler(MessageTypeLeavePost, func(client *Client, msg *Message) error {
		var room RoomPayload
		if err := msg.ParsePayload(&room); err != nil || room.PostID == "" {
			return fmt.Errorf("post_id is required")
		}
		h.hub.LeaveRoom(client, room.PostID)
		return client.Send(NewReply(msg, MessageTypeSystem, SystemPayload{
			Event: "left_post",
			Data:  map[string]interface{}{"post_id": room.PostID},
		}))
	})

	logger.Log.Debug("Registered default websocket message handlers")
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.GetMetrics(),
		"online_users": len(h.hub.GetOnlineUsers()),
		"timestamp":    time.Now().UTC(),
	})
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// GetHub returns the hub for external access
func (h *Handler) GetHub() *Hub {
	return h.hub
}
