package gateway

import "strings"

// Server-to-client event types.
const (
	// EventConnectionReady is pushed once after a successful upgrade.
	EventConnectionReady = "connection:ready"

	// EventConnectionError reports a non-fatal protocol problem (rate
	// limit, parse failure, unsupported type, handler failure). The socket
	// stays open.
	EventConnectionError = "connection:error"

	// Chat stream lifecycle, in emit order per message.
	EventChatStreamStart = "chat:stream:start"
	EventChatStreamChunk = "chat:stream:chunk"
	EventChatStreamEnd   = "chat:stream:end"
	EventChatMessage     = "chat:message"
	EventChatError       = "chat:error"

	// Tool call progress during a chat stream.
	EventToolStart = "tool:start"
	EventToolEnd   = "tool:end"

	// Channel integration events.
	EventChannelConnected    = "channel:connected"
	EventChannelStatus       = "channel:status"
	EventChannelSubscribed   = "channel:subscribed"
	EventChannelUnsubscribed = "channel:unsubscribed"
	EventChannelSent         = "channel:sent"
	EventChannelList         = "channel:list"

	// Event bridge replies and forwarded bus traffic.
	EventSubscribed   = "event:subscribed"
	EventUnsubscribed = "event:unsubscribed"
	EventMessage      = "event:message"
	EventPublishAck   = "event:publish:ack"
	EventPublishError = "event:publish:error"

	// Session keepalive and agent acks.
	EventSessionPong     = "session:pong"
	EventAgentConfigured = "agent:configured"
)

// connection:error codes.
const (
	CodeRateLimited     = "RATE_LIMITED"
	CodeParseError      = "PARSE_ERROR"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
	CodeHandlerError    = "HANDLER_ERROR"
)

// frame is the wire envelope for both directions: UTF-8 JSON with a type
// and an optional payload object.
type frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// serverFrame is the outbound envelope. Payload is marshalled as-is.
type serverFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// allowedClientEvents is the closed set of client event types the gateway
// accepts. Anything else is rejected before dispatch.
var allowedClientEvents = map[string]struct{}{
	"chat:send":  {},
	"chat:stop":  {},
	"chat:retry": {},

	"channel:connect":     {},
	"channel:disconnect":  {},
	"channel:subscribe":   {},
	"channel:unsubscribe": {},
	"channel:send":        {},
	"channel:list":        {},

	"agent:configure": {},
	"agent:stop":      {},

	"tool:cancel": {},

	"session:ping": {},
	"session:pong": {},

	"coding-agent:input":     {},
	"coding-agent:resize":    {},
	"coding-agent:subscribe": {},

	"event:subscribe":   {},
	"event:unsubscribe": {},
	"event:publish":     {},
}

// allowedClientEvent reports whether the gateway accepts the client event
// type. The workspace family is allowed as a prefix.
func allowedClientEvent(eventType string) bool {
	if _, ok := allowedClientEvents[eventType]; ok {
		return true
	}
	return strings.HasPrefix(eventType, "workspace:")
}
