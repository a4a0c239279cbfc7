package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mercator-hq/ganymede/pkg/limits/ratelimit"
)

// writeWait bounds a single outbound frame write.
const writeWait = 10 * time.Second

// maxInboundBytes caps a single inbound frame.
const maxInboundBytes = 1 << 20

// Session is one live WebSocket connection. All outbound writes go through
// Send, which serializes access to the connection; everything else is
// guarded by mu. Session is safe for concurrent use.
type Session struct {
	// ID is the server-assigned session identifier, unique per connection.
	ID string

	// UserID identifies the authenticated user, when token auth resolved
	// one. Empty for API-key and open-mode sessions.
	UserID string

	// CreatedAt is when the session was registered.
	CreatedAt time.Time

	conn   *websocket.Conn
	bucket *ratelimit.TokenBucket
	logger *slog.Logger
	clock  func() time.Time

	// writeMu serializes writes to conn. Gorilla connections support at
	// most one concurrent writer.
	writeMu sync.Mutex

	mu           sync.Mutex
	lastActivity time.Time
	lastUserMsg  string
	channels     map[string]struct{}
	patterns     map[string]func()
	chats        map[string]func()
	metadata     map[string]any
	closed       bool
}

func newSession(id, userID string, conn *websocket.Conn, bucket *ratelimit.TokenBucket, logger *slog.Logger, clock func() time.Time) *Session {
	now := clock()
	return &Session{
		ID:           id,
		UserID:       userID,
		CreatedAt:    now,
		conn:         conn,
		bucket:       bucket,
		logger:       logger,
		clock:        clock,
		lastActivity: now,
		channels:     make(map[string]struct{}),
		patterns:     make(map[string]func()),
		chats:        make(map[string]func()),
		metadata:     make(map[string]any),
	}
}

// Send marshals an event envelope and writes it to the connection. It is
// safe to call from any goroutine; writes are serialized. Sending on a
// closed session returns the connection's write error.
func (s *Session) Send(eventType string, payload any) error {
	data, err := json.Marshal(serverFrame{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	return s.sendRaw(data)
}

func (s *Session) sendRaw(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// sendError emits a connection:error frame. Write failures are logged and
// otherwise ignored; the read loop notices a dead connection on its own.
func (s *Session) sendError(code, message string) {
	if err := s.Send(EventConnectionError, map[string]any{"code": code, "message": message}); err != nil {
		s.logger.Debug("error frame not delivered", "session_id", s.ID, "code", code, "error", err)
	}
}

// ping sends a control ping. A write failure means the connection is gone.
func (s *Session) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Touch records inbound activity for idle sweeping.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = s.clock()
	s.mu.Unlock()
}

// LastActivity returns the time of the most recent inbound data frame.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// take consumes one rate-limit token, reporting whether the frame may be
// processed.
func (s *Session) take() bool {
	if s.bucket == nil {
		return true
	}
	return s.bucket.Take(1)
}

// SubscribeChannel adds a channel to the session's subscription set.
func (s *Session) SubscribeChannel(channelID string) {
	s.mu.Lock()
	s.channels[channelID] = struct{}{}
	s.mu.Unlock()
}

// UnsubscribeChannel removes a channel subscription.
func (s *Session) UnsubscribeChannel(channelID string) {
	s.mu.Lock()
	delete(s.channels, channelID)
	s.mu.Unlock()
}

// SubscribedTo reports whether the session follows the channel.
func (s *Session) SubscribedTo(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[channelID]
	return ok
}

// addPattern records a bridge subscription and its bus unsubscribe. If the
// pattern was already subscribed the previous subscription is released
// first, so re-subscribing refreshes in place without counting twice.
// Returns false when the session is at its subscription limit.
func (s *Session) addPattern(pattern string, unsubscribe func()) bool {
	s.mu.Lock()
	prev, exists := s.patterns[pattern]
	if !exists && len(s.patterns) >= MaxSessionSubscriptions {
		s.mu.Unlock()
		unsubscribe()
		return false
	}
	s.patterns[pattern] = unsubscribe
	s.mu.Unlock()
	if exists {
		prev()
	}
	return true
}

// removePattern releases one bridge subscription, reporting whether it
// existed.
func (s *Session) removePattern(pattern string) bool {
	s.mu.Lock()
	unsubscribe, ok := s.patterns[pattern]
	delete(s.patterns, pattern)
	s.mu.Unlock()
	if ok {
		unsubscribe()
	}
	return ok
}

// PatternCount returns the number of live bridge subscriptions.
func (s *Session) PatternCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns)
}

// releasePatterns drops every bridge subscription from the bus.
func (s *Session) releasePatterns() {
	s.mu.Lock()
	unsubs := make([]func(), 0, len(s.patterns))
	for _, u := range s.patterns {
		unsubs = append(unsubs, u)
	}
	s.patterns = make(map[string]func())
	s.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// registerChat tracks the cancel function of an in-flight chat stream.
func (s *Session) registerChat(messageID string, cancel func()) {
	s.mu.Lock()
	s.chats[messageID] = cancel
	s.mu.Unlock()
}

// unregisterChat drops a finished chat stream.
func (s *Session) unregisterChat(messageID string) {
	s.mu.Lock()
	delete(s.chats, messageID)
	s.mu.Unlock()
}

// cancelChat aborts one in-flight chat stream, or all of them when
// messageID is empty.
func (s *Session) cancelChat(messageID string) {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.chats))
	if messageID == "" {
		for _, c := range s.chats {
			cancels = append(cancels, c)
		}
	} else if c, ok := s.chats[messageID]; ok {
		cancels = append(cancels, c)
	}
	s.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// setLastUserMessage remembers the most recent chat:send content so that
// chat:retry without a payload can replay it.
func (s *Session) setLastUserMessage(content string) {
	s.mu.Lock()
	s.lastUserMsg = content
	s.mu.Unlock()
}

func (s *Session) lastUserMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUserMsg
}

// SetMetadata stores an arbitrary key on the session, used by
// agent:configure to carry per-session preferences.
func (s *Session) SetMetadata(key string, value any) {
	s.mu.Lock()
	s.metadata[key] = value
	s.mu.Unlock()
}

// Metadata returns a stored session key.
func (s *Session) Metadata(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.metadata[key]
	return v, ok
}

// close sends a close frame with the given code and reason, then closes
// the underlying connection. Idempotent.
func (s *Session) close(code int, reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	s.writeMu.Unlock()
	_ = s.conn.Close()
}
