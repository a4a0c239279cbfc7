package gateway

import (
	"context"
)

// ChannelInfo describes one connected messaging integration.
type ChannelInfo struct {
	// ID identifies the channel instance.
	ID string `json:"id"`

	// Platform is the integration type, e.g. "telegram" or "slack".
	Platform string `json:"platform"`

	// Status is the connection state reported by the service.
	Status string `json:"status"`

	// Name is an optional display name.
	Name string `json:"name,omitempty"`
}

// ChannelMessage is one outbound message to a platform conversation.
type ChannelMessage struct {
	// ConversationID addresses the platform-side chat or thread.
	ConversationID string

	// Text is the message body.
	Text string

	// ReplyToID threads the message under a platform message id, when the
	// platform supports it.
	ReplyToID string
}

// ChannelService is the backend for the channel:* operations. The gateway
// holds no channel state beyond per-session subscriptions; connecting,
// listing, and delivery are the service's business.
type ChannelService interface {
	// Connect starts an integration of the given platform type and
	// returns its descriptor.
	Connect(ctx context.Context, platform string, config map[string]any) (*ChannelInfo, error)

	// Disconnect stops a channel.
	Disconnect(ctx context.Context, channelID string) error

	// List returns all known channels.
	List(ctx context.Context) ([]ChannelInfo, error)

	// Send delivers a message through a channel and returns the
	// platform-assigned message id.
	Send(ctx context.Context, channelID string, msg ChannelMessage) (string, error)
}

// channelStatusError reports a channel operation failure to the session.
func channelStatusError(s *Session, channelID, message string) error {
	return s.Send(EventChannelStatus, map[string]any{
		"channelId": channelID,
		"status":    "error",
		"error":     message,
	})
}

// errNoChannelService is the client-facing message when no service is
// wired.
const errNoChannelService = "No channel service is configured"

func (g *Gateway) handleChannelConnect(s *Session, payload map[string]any) error {
	platform := payloadString(payload, "type")
	if g.channels == nil {
		return channelStatusError(s, platform, errNoChannelService)
	}

	config, _ := payload["config"].(map[string]any)
	info, err := g.channels.Connect(context.Background(), platform, config)
	if err != nil {
		g.logger.Warn("channel connect failed", "session_id", s.ID, "platform", platform, "error", err)
		return channelStatusError(s, platform, err.Error())
	}

	// The connecting session follows its new channel automatically.
	s.SubscribeChannel(info.ID)
	return s.Send(EventChannelConnected, map[string]any{"channel": info})
}

func (g *Gateway) handleChannelDisconnect(s *Session, payload map[string]any) error {
	channelID := payloadString(payload, "channelId")
	if g.channels == nil {
		return channelStatusError(s, channelID, errNoChannelService)
	}

	if err := g.channels.Disconnect(context.Background(), channelID); err != nil {
		return channelStatusError(s, channelID, err.Error())
	}
	s.UnsubscribeChannel(channelID)
	return s.Send(EventChannelStatus, map[string]any{
		"channelId": channelID,
		"status":    "disconnected",
	})
}

func (g *Gateway) handleChannelSubscribe(s *Session, payload map[string]any) error {
	channelID := payloadString(payload, "channelId")
	s.SubscribeChannel(channelID)
	return s.Send(EventChannelSubscribed, map[string]any{"channelId": channelID})
}

func (g *Gateway) handleChannelUnsubscribe(s *Session, payload map[string]any) error {
	channelID := payloadString(payload, "channelId")
	s.UnsubscribeChannel(channelID)
	return s.Send(EventChannelUnsubscribed, map[string]any{"channelId": channelID})
}

func (g *Gateway) handleChannelSend(s *Session, payload map[string]any) error {
	channelID := payloadString(payload, "channelId")
	if g.channels == nil {
		return channelStatusError(s, channelID, errNoChannelService)
	}

	msg := ChannelMessage{
		ConversationID: payloadString(payload, "conversationId"),
		Text:           payloadString(payload, "text"),
		ReplyToID:      payloadString(payload, "replyToId"),
	}
	messageID, err := g.channels.Send(context.Background(), channelID, msg)
	if err != nil {
		return channelStatusError(s, channelID, err.Error())
	}
	return s.Send(EventChannelSent, map[string]any{
		"channelId": channelID,
		"messageId": messageID,
	})
}

func (g *Gateway) handleChannelList(s *Session, payload map[string]any) error {
	if g.channels == nil {
		return s.Send(EventChannelList, map[string]any{"channels": []ChannelInfo{}})
	}

	channels, err := g.channels.List(context.Background())
	if err != nil {
		return channelStatusError(s, "", err.Error())
	}
	if channels == nil {
		channels = []ChannelInfo{}
	}
	return s.Send(EventChannelList, map[string]any{"channels": channels})
}
