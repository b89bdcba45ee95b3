package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return hub
}

func connect(t *testing.T, hub *Hub, userID string) *Client {
	t.Helper()
	before := hub.GetUserConnectionCount(userID)
	c := NewClient(hub, nil, userID, userID)
	hub.Register(c)
	require.Eventually(t, func() bool {
		return hub.GetUserConnectionCount(userID) == before+1
	}, time.Second, 5*time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", c.UserID)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message for %s: %s", c.UserID, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientRateLimit(t *testing.T) {
	hub := NewHub()
	hub.SetRateLimitConfig(RateLimitConfig{MaxMessagesPerSecond: 5, BurstSize: 10})
	rl := NewClient(hub, nil, "u1", "alice").limiter

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow(), "Request 11 should be denied")

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestNewReply(t *testing.T) {
	original := NewMessage(MessageTypePing, nil)
	original.ID = "original-id"
	reply := NewReply(original, MessageTypePong, nil)

	assert.Equal(t, MessageTypePong, reply.Type)
	assert.Equal(t, "original-id", reply.ReplyTo)
	assert.False(t, reply.Timestamp.IsZero())
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("test_error", "Something went wrong")

	assert.Equal(t, MessageTypeError, msg.Type)
	payload, ok := msg.Payload.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "test_error", payload.Code)
	assert.Equal(t, "Something went wrong", payload.Message)
}

func TestMessageParsePayload(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"join_post","payload":{"post_id":"abc"},"timestamp":1700000000000}`), &msg))

	var room RoomPayload
	require.NoError(t, msg.ParsePayload(&room))
	assert.Equal(t, "abc", room.PostID)
	assert.Equal(t, int64(1700000000000), msg.Timestamp.UnixMilli())
}

func TestFlexibleTimeAcceptsRFC3339(t *testing.T) {
	var ft FlexibleTime
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:00:00Z"`), &ft))
	assert.Equal(t, 2024, ft.Year())

	assert.Error(t, json.Unmarshal([]byte(`true`), &ft))
}

func TestHubSendToUserReachesEveryConnection(t *testing.T) {
	hub := startHub(t)
	phone := connect(t, hub, "alice")
	laptop := connect(t, hub, "alice")
	bob := connect(t, hub, "bob")

	hub.SendToUser("alice", NewMessage(MessageTypeNotification, NotificationPayload{Kind: NotificationFollow}))

	assert.Equal(t, MessageTypeNotification, receive(t, phone).Type)
	assert.Equal(t, MessageTypeNotification, receive(t, laptop).Type)
	assertSilent(t, bob)
	assert.Equal(t, 2, hub.GetUserConnectionCount("alice"))
}

func TestHubRooms(t *testing.T) {
	hub := startHub(t)
	viewer := connect(t, hub, "viewer")
	other := connect(t, hub, "other")

	hub.JoinRoom(viewer, "post1")
	assert.Equal(t, 1, hub.RoomSize("post1"))

	hub.SendToRoom("post1", NewMessage(MessageTypePostLike, PostLikePayload{PostID: "post1", LikeCount: 1, Liked: true}))

	msg := receive(t, viewer)
	assert.Equal(t, MessageTypePostLike, msg.Type)
	var like PostLikePayload
	require.NoError(t, msg.ParsePayload(&like))
	assert.Equal(t, 1, like.LikeCount)
	assertSilent(t, other)

	hub.LeaveRoom(viewer, "post1")
	assert.Equal(t, 0, hub.RoomSize("post1"))

	hub.SendToRoom("post1", NewMessage(MessageTypePostLike, PostLikePayload{PostID: "post1"}))
	assertSilent(t, viewer)
}

func TestHubUnregisterLeavesRooms(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "alice")
	hub.JoinRoom(c, "post1")
	hub.JoinRoom(c, "post2")

	hub.Unregister(c)

	assert.Eventually(t, func() bool {
		return !hub.IsUserOnline("alice") && hub.RoomSize("post1") == 0 && hub.RoomSize("post2") == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Error(t, c.Send(NewMessage(MessageTypeSystem, nil)))

	// Unregistering twice is harmless
	hub.Unregister(c)
	assert.Equal(t, int64(0), hub.GetMetrics().ActiveConnections)
}

func TestHubJoinRoomIgnoresUnknownClient(t *testing.T) {
	hub := startHub(t)
	stray := NewClient(hub, nil, "ghost", "ghost")

	assert.False(t, hub.JoinRoom(stray, "post1"))
	assert.Equal(t, 0, hub.RoomSize("post1"))
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	c := connect(t, hub, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	msg := receive(t, c)
	assert.Equal(t, MessageTypeSystem, msg.Type)
	_, ok := <-c.send
	assert.False(t, ok)

	// Second shutdown is a no-op
	assert.NoError(t, hub.Shutdown(ctx))
}

func TestHubMetricsSnapshot(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "alice")
	hub.JoinRoom(c, "post1")
	hub.SendToUser("alice", NewMessage(MessageTypeSystem, nil))
	receive(t, c)

	m := hub.GetMetrics()
	assert.Equal(t, int64(1), m.TotalConnections)
	assert.Equal(t, int64(1), m.ActiveConnections)
	assert.Equal(t, int64(1), m.ActiveRooms)
	assert.Equal(t, int64(1), m.MessagesSent)
	assert.Contains(t, m.String(), "connections=1/1")
}

func TestClientPingPong(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "alice")

	ping := NewMessage(MessageTypePing, PingPayload{ClientTime: time.Now().UnixMilli()})
	ping.ID = "p1"
	c.handleMessage(ping)

	pong := receive(t, c)
	assert.Equal(t, MessageTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ReplyTo)
}

func TestClientUnknownMessageType(t *testing.T) {
	hub := startHub(t)
	c := connect(t, hub, "alice")

	c.handleMessage(&Message{Type: "teleport"})

	msg := receive(t, c)
	assert.Equal(t, MessageTypeError, msg.Type)
	var payload ErrorPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Equal(t, "unknown_type", payload.Code)
}

func TestJoinAndLeavePostHandlers(t *testing.T) {
	hub := startHub(t)
	h := NewHandler(hub, nil)
	h.SetRoomAuthorizer(func(_ context.Context, userID, postID string) error {
		if postID == "secret" {
			return errors.New("hidden")
		}
		return nil
	})
	h.RegisterDefaultHandlers()

	c := connect(t, hub, "alice")

	c.handleMessage(&Message{Type: MessageTypeJoinPost, Payload: json.RawMessage(`{"post_id":"post1"}`)})
	ack := receive(t, c)
	assert.Equal(t, MessageTypeSystem, ack.Type)
	assert.Equal(t, 1, hub.RoomSize("post1"))

	c.handleMessage(&Message{Type: MessageTypeJoinPost, Payload: json.RawMessage(`{"post_id":"secret"}`)})
	assert.Equal(t, MessageTypeError, receive(t, c).Type)
	assert.Equal(t, 0, hub.RoomSize("secret"))

	c.handleMessage(&Message{Type: MessageTypeJoinPost, Payload: json.RawMessage(`{}`)})
	assert.Equal(t, MessageTypeError, receive(t, c).Type)

	c.handleMessage(&Message{Type: MessageTypeLeavePost, Payload: json.RawMessage(`{"post_id":"post1"}`)})
	receive(t, c)
	assert.Equal(t, 0, hub.RoomSize("post1"))
}

func TestRelayWithoutRedisDeliversLocally(t *testing.T) {
	hub := startHub(t)
	relay := NewRelay(nil, hub)
	require.NoError(t, relay.Start(context.Background()))

	c := connect(t, hub, "alice")
	hub.JoinRoom(c, "post1")

	relay.PublishToUser("alice", NewMessage(MessageTypeNotification, nil))
	assert.Equal(t, MessageTypeNotification, receive(t, c).Type)

	relay.PublishToPost("post1", NewMessage(MessageTypePostComment, nil))
	assert.Equal(t, MessageTypePostComment, receive(t, c).Type)
}

func TestRelayFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newInstance := func() (*Hub, *Relay) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		hub := startHub(t)
		relay := NewRelay(rdb, hub)
		require.NoError(t, relay.Start(ctx))
		return hub, relay
	}

	hubA, relayA := newInstance()
	hubB, _ := newInstance()

	onA := connect(t, hubA, "alice")
	onB := connect(t, hubB, "alice")
	viewer := connect(t, hubB, "bob")
	hubB.JoinRoom(viewer, "post1")

	relayA.PublishToUser("alice", NewMessage(MessageTypeNotification, NotificationPayload{Kind: NotificationLike, PostID: "post1"}))

	for _, c := range []*Client{onA, onB} {
		msg := receive(t, c)
		assert.Equal(t, MessageTypeNotification, msg.Type)
		var n NotificationPayload
		require.NoError(t, msg.ParsePayload(&n))
		assert.Equal(t, NotificationLike, n.Kind)
	}

	relayA.PublishToPost("post1", NewMessage(MessageTypePostLike, PostLikePayload{PostID: "post1", LikeCount: 3}))
	msg := receive(t, viewer)
	assert.Equal(t, MessageTypePostLike, msg.Type)
	assertSilent(t, onA)
}

func TestJoinPostImmediatelyAfterRegister(t *testing.T) {
	// The event loop is not running yet, so nothing but Register itself
	// can have added the client.
	hub := NewHub()
	h := NewHandler(hub, nil)
	h.RegisterDefaultHandlers()

	c := NewClient(hub, nil, "bob", "bob")
	require.True(t, hub.Register(c))
	assert.Equal(t, 1, hub.GetUserConnectionCount("bob"))

	c.handleMessage(&Message{Type: MessageTypeJoinPost, Payload: json.RawMessage(`{"post_id":"post1"}`)})
	ack := receive(t, c)
	assert.Equal(t, MessageTypeSystem, ack.Type)
	assert.Equal(t, 1, hub.RoomSize("post1"))

	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})

	hub.PublishToPost("post1", NewMessage(MessageTypePostLike, PostLikePayload{PostID: "post1", LikeCount: 1, Liked: true}))
	like := receive(t, c)
	assert.Equal(t, MessageTypePostLike, like.Type)
}

func TestJoinPostRejectsUnregisteredClient(t *testing.T) {
	hub := startHub(t)
	h := NewHandler(hub, nil)
	h.RegisterDefaultHandlers()

	stray := NewClient(hub, nil, "ghost", "ghost")
	stray.handleMessage(&Message{Type: MessageTypeJoinPost, Payload: json.RawMessage(`{"post_id":"post1"}`)})

	msg := receive(t, stray)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, 0, hub.RoomSize("post1"))
}

func TestRegisterAfterShutdown(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	assert.False(t, hub.Register(NewClient(hub, nil, "late", "late")))
	assert.Equal(t, 0, hub.GetUserConnectionCount("late"))
}

type tokenRecorder struct {
	seen string
}

func (r *tokenRecorder) ValidateToken(_ context.Context, token string) (*models.User, error) {
	r.seen = token
	return &models.User{Username: "alice"}, nil
}

func TestAuthenticateRequestTokenSources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"query only", "/ws?token=qtok", "", "qtok"},
		{"bearer header wins", "/ws?token=qtok", "Bearer htok", "htok"},
		{"non bearer header ignored", "/ws?token=qtok", "Basic dXNlcjpwYXNz", "qtok"},
		{"empty bearer ignored", "/ws?token=qtok", "Bearer ", "qtok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &tokenRecorder{}
			h := NewHandler(NewHub(), rec)

			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", tt.url, nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			_, err := h.authenticateRequest(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.seen)
		})
	}

	h := NewHandler(NewHub(), &tokenRecorder{})
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/ws", nil)
	c.Request.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err := h.authenticateRequest(c)
	assert.Error(t, err)
}
