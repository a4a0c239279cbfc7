package gateway

import (
	"strings"

	"mercator-hq/ganymede/pkg/bus"
)

// forwardRule broadcasts bus events matching Pattern to every session as
// Event. A "*" in Event is substituted with the event-type segment the
// pattern's wildcard matched, so channel.user.blocked forwards as
// channel:user:blocked.
type forwardRule struct {
	Pattern string
	Event   string
}

// legacyForwards keeps the colon-named session events that predate the
// bridge flowing without every client having to event:subscribe.
var legacyForwards = []forwardRule{
	{Pattern: "pulse.*", Event: "pulse:activity"},
	{Pattern: "gateway.data.changed", Event: "data:changed"},
	{Pattern: "channel.user.*", Event: "channel:user:*"},
}

// registerForwards installs one bus subscription per rule and retains the
// unsubscribes for Shutdown.
func (g *Gateway) registerForwards() {
	for _, rule := range legacyForwards {
		rule := rule
		unsubscribe, err := g.bus.OnPattern(rule.Pattern, func(e bus.Event) error {
			g.Broadcast(forwardEventName(rule, e.Type), e.Data)
			return nil
		})
		if err != nil {
			g.logger.Error("forward rule rejected", "pattern", rule.Pattern, "error", err)
			continue
		}
		g.forwards = append(g.forwards, unsubscribe)
	}
}

// forwardEventName resolves the session event name for one matched bus
// event, substituting the wildcard segment when the rule carries one.
func forwardEventName(rule forwardRule, eventType string) string {
	if !strings.Contains(rule.Event, "*") {
		return rule.Event
	}
	patternSegments := strings.Split(rule.Pattern, ".")
	typeSegments := strings.Split(eventType, ".")
	for i, segment := range patternSegments {
		if segment == "*" && i < len(typeSegments) {
			return strings.Replace(rule.Event, "*", typeSegments[i], 1)
		}
	}
	return strings.Replace(rule.Event, "*", "unknown", 1)
}
