package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/ganymede/pkg/bus"
)

// MaxSessionSubscriptions caps the bridge patterns one session may hold.
const MaxSessionSubscriptions = 50

// publishPrefixes are the only namespaces clients may publish into. The
// gateway's own namespaces (system, chat, channel, ...) stay
// server-authoritative.
var publishPrefixes = []string{"external.", "client."}

// blockedPublishTypes are rejected even under an allowed prefix, and the
// lifecycle types are listed outright so a future prefix change cannot
// quietly open them up.
var blockedPublishTypes = map[string]struct{}{
	"system.shutdown": {},
	"system.startup":  {},
}

// handleEventSubscribe attaches the session to a bus pattern. Replies with
// event:subscribed carrying success or the validation failure; bus events
// matching the pattern then flow to the client as event:message until
// unsubscribe or disconnect.
func (g *Gateway) handleEventSubscribe(s *Session, payload map[string]any) error {
	pattern := payloadString(payload, "pattern")

	reply := func(success bool, errMsg string) error {
		p := map[string]any{"pattern": pattern, "success": success}
		if errMsg != "" {
			p["error"] = errMsg
		}
		return s.Send(EventSubscribed, p)
	}

	unsubscribe, err := g.bus.OnPattern(pattern, func(e bus.Event) error {
		return s.Send(EventMessage, map[string]any{
			"type":      e.Type,
			"source":    e.Source,
			"data":      e.Data,
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return reply(false, subscribeErrorMessage(err))
	}

	if !s.addPattern(pattern, unsubscribe) {
		return reply(false, fmt.Sprintf("Subscription limit reached (max %d patterns)", MaxSessionSubscriptions))
	}
	return reply(true, "")
}

// handleEventUnsubscribe detaches one pattern.
func (g *Gateway) handleEventUnsubscribe(s *Session, payload map[string]any) error {
	pattern := payloadString(payload, "pattern")
	found := s.removePattern(pattern)
	return s.Send(EventUnsubscribed, map[string]any{"pattern": pattern, "success": found})
}

// handleEventPublish puts a client event on the bus. Only the external.
// and client. namespaces are writable from a session, and the source is
// stamped with the session identity so consumers can always tell client
// traffic from server traffic.
func (g *Gateway) handleEventPublish(s *Session, payload map[string]any) error {
	eventType := payloadString(payload, "type")
	if msg, ok := publishAllowed(eventType); !ok {
		return s.Send(EventPublishError, map[string]any{"type": eventType, "error": msg})
	}

	data, _ := payload["data"].(map[string]any)
	g.emitBus(eventType, "ws:"+s.ID, data)
	return s.Send(EventPublishAck, map[string]any{"type": eventType})
}

// emitBus emits on the gateway's bus, logging subscriber failures instead
// of surfacing them: a client publish or tool cancel must not fail because
// some unrelated subscriber errored.
func (g *Gateway) emitBus(eventType, source string, data map[string]any) error {
	err := g.bus.Emit(bus.Event{Type: eventType, Source: source, Data: data})
	if err != nil {
		g.logger.Warn("bus subscribers reported errors", "type", eventType, "error", err)
	}
	return nil
}

// publishAllowed applies the publish policy, returning the client-facing
// rejection message when the type is not publishable.
func publishAllowed(eventType string) (string, bool) {
	if eventType == "" {
		return "Type is required", false
	}
	if _, blocked := blockedPublishTypes[eventType]; blocked {
		return fmt.Sprintf("Type %q is not publishable", eventType), false
	}
	for _, prefix := range publishPrefixes {
		if strings.HasPrefix(eventType, prefix) {
			return "", true
		}
	}
	return fmt.Sprintf("Type must start with one of: %s", strings.Join(publishPrefixes, ", ")), false
}

// subscribeErrorMessage maps pattern validation errors to the messages the
// client protocol promises.
func subscribeErrorMessage(err error) string {
	switch {
	case errors.Is(err, bus.ErrPatternEmpty):
		return "Pattern is required"
	case errors.Is(err, bus.ErrPatternTooLong):
		return fmt.Sprintf("Pattern too long (max %d characters)", bus.MaxPatternLength)
	case errors.Is(err, bus.ErrPatternTooDeep):
		return fmt.Sprintf("Pattern too deep (max %d segments)", bus.MaxPatternSegments)
	case errors.Is(err, bus.ErrPatternCharset):
		return "Pattern contains invalid characters"
	}
	return "Invalid pattern"
}
