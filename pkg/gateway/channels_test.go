package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeChannels is an in-memory ChannelService.
type fakeChannels struct {
	mu       sync.Mutex
	channels map[string]ChannelInfo
	sent     []ChannelMessage
	failWith error
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{channels: make(map[string]ChannelInfo)}
}

func (f *fakeChannels) Connect(_ context.Context, platform string, _ map[string]any) (*ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	info := ChannelInfo{ID: "ch-" + platform, Platform: platform, Status: "connected"}
	f.channels[info.ID] = info
	return &info, nil
}

func (f *fakeChannels) Disconnect(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return errors.New("unknown channel")
	}
	delete(f.channels, channelID)
	return nil
}

func (f *fakeChannels) List(_ context.Context) ([]ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ChannelInfo, 0, len(f.channels))
	for _, c := range f.channels {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChannels) Send(_ context.Context, channelID string, msg ChannelMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return "", errors.New("unknown channel")
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

func TestChannelConnectAndList(t *testing.T) {
	svc := newFakeChannels()
	tg := newTestGateway(t, Options{Channels: svc})
	conn, _ := tg.connect(t)

	sendFrame(t, conn, "channel:connect", map[string]any{"type": "telegram"})
	payload := awaitFrame(t, conn, EventChannelConnected)
	channel, _ := payload["channel"].(map[string]any)
	if channel["id"] != "ch-telegram" || channel["platform"] != "telegram" {
		t.Fatalf("channel = %v", channel)
	}

	sendFrame(t, conn, "channel:list", nil)
	payload = awaitFrame(t, conn, EventChannelList)
	channels, _ := payload["channels"].([]any)
	if len(channels) != 1 {
		t.Errorf("channels = %v, want one entry", payload["channels"])
	}

	// Connecting subscribed the session; channel broadcasts reach it.
	if sent := tg.g.BroadcastToChannel("ch-telegram", "channel:message", map[string]any{"text": "hi"}); sent != 1 {
		t.Errorf("BroadcastToChannel sent = %d, want 1", sent)
	}
}

func TestChannelConnectFailure(t *testing.T) {
	svc := newFakeChannels()
	svc.failWith = errors.New("bad credentials")
	tg := newTestGateway(t, Options{Channels: svc})
	conn, _ := tg.connect(t)

	sendFrame(t, conn, "channel:connect", map[string]any{"type": "slack"})
	payload := awaitFrame(t, conn, EventChannelStatus)
	if payload["status"] != "error" {
		t.Errorf("status = %v, want error", payload["status"])
	}
	if payload["channelId"] != "slack" {
		t.Errorf("channelId = %v, want slack", payload["channelId"])
	}
	if payload["error"] != "bad credentials" {
		t.Errorf("error = %v", payload["error"])
	}
}

func TestChannelSend(t *testing.T) {
	svc := newFakeChannels()
	tg := newTestGateway(t, Options{Channels: svc})
	conn, _ := tg.connect(t)

	sendFrame(t, conn, "channel:connect", map[string]any{"type": "telegram"})
	awaitFrame(t, conn, EventChannelConnected)

	sendFrame(t, conn, "channel:send", map[string]any{
		"channelId":      "ch-telegram",
		"conversationId": "chat-42",
		"text":           "hello there",
	})
	payload := awaitFrame(t, conn, EventChannelSent)
	if payload["messageId"] != "msg-1" {
		t.Errorf("messageId = %v", payload["messageId"])
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.sent) != 1 || svc.sent[0].Text != "hello there" || svc.sent[0].ConversationID != "chat-42" {
		t.Errorf("sent = %+v", svc.sent)
	}
}

func TestChannelDisconnect(t *testing.T) {
	svc := newFakeChannels()
	tg := newTestGateway(t, Options{Channels: svc})
	conn, _ := tg.connect(t)

	sendFrame(t, conn, "channel:connect", map[string]any{"type": "telegram"})
	awaitFrame(t, conn, EventChannelConnected)

	sendFrame(t, conn, "channel:disconnect", map[string]any{"channelId": "ch-telegram"})
	payload := awaitFrame(t, conn, EventChannelStatus)
	if payload["status"] != "disconnected" {
		t.Errorf("status = %v, want disconnected", payload["status"])
	}

	// No longer subscribed: channel broadcasts skip this session.
	if sent := tg.g.BroadcastToChannel("ch-telegram", "channel:message", nil); sent != 0 {
		t.Errorf("BroadcastToChannel sent = %d, want 0", sent)
	}
}

func TestChannelOperationsWithoutService(t *testing.T) {
	tg := newTestGateway(t, Options{})
	conn, _ := tg.connect(t)

	sendFrame(t, conn, "channel:connect", map[string]any{"type": "telegram"})
	payload := awaitFrame(t, conn, EventChannelStatus)
	if payload["status"] != "error" || payload["error"] != errNoChannelService {
		t.Errorf("payload = %v", payload)
	}

	// Listing degrades to an empty set instead of an error.
	sendFrame(t, conn, "channel:list", nil)
	payload = awaitFrame(t, conn, EventChannelList)
	channels, ok := payload["channels"].([]any)
	if !ok || len(channels) != 0 {
		t.Errorf("channels = %v, want empty list", payload["channels"])
	}
}
