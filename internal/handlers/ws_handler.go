package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/cache"
	"tripstars-api/internal/database"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// closeAuthFailed is sent when the token is missing, invalid, or the
	// account is inactive.
	closeAuthFailed = 4001

	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients cannot set Authorization headers on sockets; auth is
	// the token query parameter, so origin checking is left to the CORS
	// layer in front.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsUserCache avoids a DB read per connection attempt during reconnect storms.
var wsUserCache = cache.New[string, models.User]()

const wsUserCacheTTL = 30 * time.Second

// wsClient adapts one websocket connection to the hub's Client interface.
// Writes are serialized by a mutex since the hub and the read loop's pong
// replies both write.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, message) == nil
}

func (c *wsClient) Close() {
	c.conn.Close()
}

func (c *wsClient) sendEnvelope(eventType string, data any) bool {
	payload, err := json.Marshal(realtime.Envelope{Type: eventType, Data: data})
	if err != nil {
		return false
	}
	return c.Send(payload)
}

// inboundFrame is the client-to-server message shape.
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// rejectSocket upgrades just far enough to deliver a close frame with the
// auth-failure code, so clients can distinguish bad credentials from network
// flakiness.
func rejectSocket(c *gin.Context, reason string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	msg := websocket.FormatCloseMessage(closeAuthFailed, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	conn.Close()
}

// ServeWS handles GET /ws?token=: authenticates via the access token,
// registers the connection with the hub, and runs the read loop until the
// peer goes away.
func ServeWS(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			rejectSocket(c, "Missing token")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			rejectSocket(c, "Invalid token")
			return
		}

		user, ok := wsUserCache.Get(claims.UserID)
		if !ok {
			if err := database.GetDB().Where("id = ?", claims.UserID).First(&user).Error; err != nil {
				rejectSocket(c, "User not found")
				return
			}
			wsUserCache.Set(claims.UserID, user, wsUserCacheTTL)
		}
		if !user.IsActive {
			rejectSocket(c, "User account is inactive")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws: upgrade failed for user %s: %v", user.ID, err)
			return
		}

		client := &wsClient{conn: conn}
		hub.Register(user.ID, client)
		defer func() {
			hub.Unregister(user.ID, client)
			conn.Close()
		}()

		client.sendEnvelope(realtime.EventConnected, gin.H{
			"user_id": user.ID,
			"message": "Connected to real-time updates",
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}

			switch frame.Type {
			case "ping":
				client.sendEnvelope(realtime.EventPong, gin.H{"timestamp": time.Now().UTC()})
			case "typing":
				relayTyping(hub, user, frame)
			}
		}
	}
}

// relayTyping forwards a typing frame to the conversation's other
// participants after verifying the sender belongs to it.
func relayTyping(hub *realtime.Hub, user models.User, frame inboundFrame) {
	if frame.ConversationID == "" {
		return
	}

	var conv models.Conversation
	if err := database.GetDB().Where("id = ?", frame.ConversationID).First(&conv).Error; err != nil {
		return
	}
	if !conv.HasParticipant(user.ID) {
		return
	}

	hub.BroadcastTyping(conv.ID, user.ID, user.FullName, conv.Participants, frame.IsTyping)
}
