package realtime

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub tracks which live connections should receive events for a given key
// and delivers events best-effort. Two independent namespaces exist:
// per-user (notifications, presence, price alerts) and per-conversation
// (chat transcript, typing, read receipts).
//
// The hub is a pure delivery cache: the relational store stays the source
// of truth, and an event sent to a key with no connections is dropped.
type Hub struct {
	mu            sync.RWMutex
	users         map[string]map[*Client]struct{}
	conversations map[string]map[*Client]struct{}
	online        map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users:         make(map[string]map[*Client]struct{}),
		conversations: make(map[string]map[*Client]struct{}),
		online:        make(map[string]struct{}),
	}
}

// RegisterUser adds a connection under the user namespace. The user enters
// the presence set on their first connection only; in that case a
// user_status event is broadcast to every connected user.
func (h *Hub) RegisterUser(userID string, c *Client) {
	h.mu.Lock()
	set, ok := h.users[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[userID] = set
	}
	set[c] = struct{}{}
	_, wasOnline := h.online[userID]
	h.online[userID] = struct{}{}
	h.mu.Unlock()

	if !wasOnline {
		h.Broadcast(UserStatus{Type: EventUserStatus, UserID: userID, Online: true})
	}
}

// UnregisterUser removes a connection. Removing a connection that is not
// registered is a no-op: disconnect signals can arrive twice or out of
// order. The last removal drops the key, removes the user from the
// presence set and broadcasts the offline status.
func (h *Hub) UnregisterUser(userID string, c *Client) {
	h.mu.Lock()
	wentOffline := false
	if set, ok := h.users[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, userID)
			delete(h.online, userID)
			wentOffline = true
		}
	}
	h.mu.Unlock()

	if wentOffline {
		h.Broadcast(UserStatus{Type: EventUserStatus, UserID: userID, Online: false})
	}
}

// RegisterConversation adds a connection under the conversation namespace
func (h *Hub) RegisterConversation(conversationID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conversations[conversationID]
	if !ok {
		set = make(map[*Client]struct{})
		h.conversations[conversationID] = set
	}
	set[c] = struct{}{}
}

// UnregisterConversation removes a connection from the conversation
// namespace; a no-op when already absent
func (h *Hub) UnregisterConversation(conversationID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conversations[conversationID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conversations, conversationID)
		}
	}
}

// SendToUser delivers event to every connection registered under the user
// key. Delivery is at-most-once, best-effort: a write failure removes only
// the offending connection and never blocks delivery to siblings.
func (h *Hub) SendToUser(userID string, event interface{}) {
	data, err := marshalEvent(event)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID}).
			WithError(err).Warn("dropping unmarshalable user event")
		return
	}

	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		if err := c.write(data); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID}).
				WithError(err).Debug("pruning dead user connection")
			h.UnregisterUser(userID, c)
			c.close()
		}
	}
}

// SendToConversation delivers event to every connection subscribed to the
// conversation key, with the same per-connection failure isolation as
// SendToUser.
func (h *Hub) SendToConversation(conversationID string, event interface{}) {
	data, err := marshalEvent(event)
	if err != nil {
		logrus.WithFields(logrus.Fields{"conversation_id": conversationID}).
			WithError(err).Warn("dropping unmarshalable conversation event")
		return
	}

	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.conversations[conversationID]))
	for c := range h.conversations[conversationID] {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		if err := c.write(data); err != nil {
			logrus.WithFields(logrus.Fields{"conversation_id": conversationID}).
				WithError(err).Debug("pruning dead conversation connection")
			h.UnregisterConversation(conversationID, c)
			c.close()
		}
	}
}

// Broadcast delivers event to every currently-known user key
func (h *Hub) Broadcast(event interface{}) {
	h.mu.RLock()
	keys := make([]string, 0, len(h.users))
	for userID := range h.users {
		keys = append(keys, userID)
	}
	h.mu.RUnlock()

	for _, userID := range keys {
		h.SendToUser(userID, event)
	}
}

// Status is a snapshot of hub state for the introspection endpoint. It is
// operational visibility only, never application logic.
type Status struct {
	ConnectedUsers         []string `json:"connected_users"`
	ConnectedConversations []string `json:"connected_conversations"`
	OnlineUsers            []string `json:"online_users"`
}

func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := Status{
		ConnectedUsers:         make([]string, 0, len(h.users)),
		ConnectedConversations: make([]string, 0, len(h.conversations)),
		OnlineUsers:            make([]string, 0, len(h.online)),
	}
	for k := range h.users {
		st.ConnectedUsers = append(st.ConnectedUsers, k)
	}
	for k := range h.conversations {
		st.ConnectedConversations = append(st.ConnectedConversations, k)
	}
	for k := range h.online {
		st.OnlineUsers = append(st.OnlineUsers, k)
	}
	sort.Strings(st.ConnectedUsers)
	sort.Strings(st.ConnectedConversations)
	sort.Strings(st.OnlineUsers)
	return st
}

// IsOnline reports whether the user currently has at least one live
// connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.online[userID]
	return ok
}
