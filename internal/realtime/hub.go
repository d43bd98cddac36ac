package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Client represents a single live duplex connection. The network conn itself
// is owned by the websocket handler; Send must be bounded (write deadline)
// and report false on transport failure.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Envelope is the typed wire shape pushed to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Envelope types.
const (
	EventNotification = "notification"
	EventChatMessage  = "chat_message"
	EventTyping       = "typing"
	EventReadReceipt  = "read_receipt"
	EventConnected    = "connected"
	EventPong         = "pong"
)

// Hub tracks live connections per user and delivers events to the right
// participant sets with best-effort semantics: no queuing, no persistence,
// no delivery confirmation. Construct one per process (or per test) and
// inject it; there is no package-level instance.
type Hub struct {
	mu sync.RWMutex
	// userID -> set of live connections; a user may hold several (tabs,
	// devices). An absent entry means offline.
	userConns map[string]map[Client]struct{}
	// conversationID -> set of userIDs currently typing. UI-intent state
	// only, never persisted.
	typing map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		userConns: make(map[string]map[Client]struct{}),
		typing:    make(map[string]map[string]struct{}),
	}
}

// Register adds a connection under a user ID. Duplicate registrations from
// the same user are always accepted.
func (h *Hub) Register(userID string, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userConns[userID]; !ok {
		h.userConns[userID] = make(map[Client]struct{})
	}
	h.userConns[userID][c] = struct{}{}
}

// Unregister removes a connection; the user entry is pruned when its set
// becomes empty, so IsOnline is exactly "has a non-empty entry".
func (h *Hub) Unregister(userID string, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userConns[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.userConns, userID)
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// SendToUser delivers payload to every live connection registered for the
// user. A connection that fails the send is treated as already-disconnected
// and pruned; failures are never reported to the caller.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.mu.RLock()
	conns := make([]Client, 0, len(h.userConns[userID]))
	for c := range h.userConns[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var dead []Client
	for _, c := range conns {
		if !c.Send(payload) {
			dead = append(dead, c)
		}
	}

	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range dead {
		if set, ok := h.userConns[userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.userConns, userID)
			}
		}
		c.Close()
	}
	h.mu.Unlock()
}

// SendToUsers delivers payload to each recipient in turn. There is no
// atomicity across recipients; one dead recipient never blocks the rest.
func (h *Hub) SendToUsers(userIDs []string, payload []byte) {
	for _, id := range userIDs {
		h.SendToUser(id, payload)
	}
}

func (h *Hub) sendEnvelope(userID, eventType string, data any) {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", eventType, err)
		return
	}
	h.SendToUser(userID, payload)
}

// BroadcastNotification pushes a notification event to one user.
func (h *Hub) BroadcastNotification(userID string, data any) {
	h.sendEnvelope(userID, EventNotification, data)
}

// BroadcastChatMessage pushes a new chat message to every participant,
// the sender included.
func (h *Hub) BroadcastChatMessage(participantIDs []string, data any) {
	payload, err := json.Marshal(Envelope{Type: EventChatMessage, Data: data})
	if err != nil {
		log.Printf("realtime: marshal chat_message event: %v", err)
		return
	}
	h.SendToUsers(participantIDs, payload)
}

// TypingEvent is the payload of a typing envelope.
type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	IsTyping       bool   `json:"is_typing"`
}

// BroadcastTyping records the actor's typing intent for the conversation and
// notifies every other participant.
func (h *Hub) BroadcastTyping(conversationID, userID, userName string, participantIDs []string, isTyping bool) {
	h.mu.Lock()
	if isTyping {
		if _, ok := h.typing[conversationID]; !ok {
			h.typing[conversationID] = make(map[string]struct{})
		}
		h.typing[conversationID][userID] = struct{}{}
	} else if set, ok := h.typing[conversationID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(h.typing, conversationID)
		}
	}
	h.mu.Unlock()

	event := TypingEvent{
		ConversationID: conversationID,
		UserID:         userID,
		UserName:       userName,
		IsTyping:       isTyping,
	}
	for _, pid := range participantIDs {
		if pid != userID {
			h.sendEnvelope(pid, EventTyping, event)
		}
	}
}

// ReadReceiptEvent is the payload of a read_receipt envelope.
type ReadReceiptEvent struct {
	ConversationID string   `json:"conversation_id"`
	UserID         string   `json:"user_id"`
	MessageIDs     []string `json:"message_ids"`
}

// BroadcastReadReceipt notifies every participant except the reader.
func (h *Hub) BroadcastReadReceipt(conversationID, userID string, messageIDs, participantIDs []string) {
	event := ReadReceiptEvent{
		ConversationID: conversationID,
		UserID:         userID,
		MessageIDs:     messageIDs,
	}
	for _, pid := range participantIDs {
		if pid != userID {
			h.sendEnvelope(pid, EventReadReceipt, event)
		}
	}
}

// TypingUsers returns the users currently marked typing in a conversation.
func (h *Hub) TypingUsers(conversationID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.typing[conversationID]))
	for id := range h.typing[conversationID] {
		out = append(out, id)
	}
	return out
}
