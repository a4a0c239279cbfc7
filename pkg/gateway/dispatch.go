package gateway

import (
	"encoding/json"
	"fmt"
)

// dispatch runs one inbound frame through the pipeline: rate limit, then
// activity touch, then parse, then the allow-list, then the handler. Every
// rejection is reported on the socket as connection:error and never closes
// it.
//
// The rate limit is charged before parsing, so malformed floods are paid
// for too. session:ping is not exempt: a pinging client spends its budget
// like everyone else.
func (g *Gateway) dispatch(s *Session, data []byte) {
	if !s.take() {
		g.logger.Debug("frame dropped", "session_id", s.ID, "reason", "rate limited")
		s.sendError(CodeRateLimited, "Rate limit exceeded, message dropped")
		return
	}

	s.Touch()

	var f frame
	if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
		g.metrics.RecordWSMessage("invalid")
		s.sendError(CodeParseError, "Invalid message format")
		return
	}

	g.metrics.RecordWSMessage(f.Type)

	if !allowedClientEvent(f.Type) {
		g.logger.Debug("unknown frame type", "session_id", s.ID, "type", f.Type)
		s.sendError(CodeUnsupportedType, fmt.Sprintf("Unsupported event type: %s", f.Type))
		return
	}

	handler, ok := g.handlers[f.Type]
	if !ok {
		// Accepted families without a runtime in this build, such as
		// workspace:* and coding-agent:*.
		g.logger.Debug("frame accepted but not handled", "session_id", s.ID, "type", f.Type)
		s.sendError(CodeUnsupportedType, fmt.Sprintf("Unsupported event type: %s", f.Type))
		return
	}

	if err := g.invoke(handler, s, f.Payload); err != nil {
		g.logger.Error("handler failed", "session_id", s.ID, "type", f.Type, "error", err)
		s.sendError(CodeHandlerError, "Internal handler error")
	}
}

// invoke runs a handler with panic isolation. A panicking handler must not
// take down the read loop, let alone the process.
func (g *Gateway) invoke(handler handlerFunc, s *Session, payload map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(s, payload)
}

// payloadString extracts a string field from a frame payload.
func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	v, _ := payload[key].(string)
	return v
}

// handleSessionPing answers the application-level keepalive. Note it is
// rate-limited like any other frame.
func (g *Gateway) handleSessionPing(s *Session, payload map[string]any) error {
	return s.Send(EventSessionPong, map[string]any{
		"timestamp": g.clock().UnixMilli(),
	})
}

// handleSessionPong accepts a client pong. The dispatch pipeline already
// touched the activity clock; nothing else to do.
func (g *Gateway) handleSessionPong(s *Session, payload map[string]any) error {
	return nil
}
