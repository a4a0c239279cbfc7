package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/providers"
)

// demoChunkInterval paces demo-mode streaming so the client sees the same
// cadence a real provider produces.
const demoChunkInterval = 50 * time.Millisecond

// metadataTaskType is the session metadata key set by agent:configure and
// read by chat dispatch.
const metadataTaskType = "task_type"

// handleChatSend validates the message and runs the stream in its own
// goroutine so the read loop keeps consuming frames (chat:stop must be
// able to arrive mid-stream).
func (g *Gateway) handleChatSend(s *Session, payload map[string]any) error {
	content := payloadString(payload, "content")
	if strings.TrimSpace(content) == "" {
		return s.Send(EventChatError, map[string]any{"error": "Message content is required"})
	}
	s.setLastUserMessage(content)
	g.startChat(s, content)
	return nil
}

// handleChatRetry re-runs the last user message, or the provided content
// when the payload carries one.
func (g *Gateway) handleChatRetry(s *Session, payload map[string]any) error {
	content := payloadString(payload, "content")
	if content == "" {
		content = s.lastUserMessage()
	}
	if strings.TrimSpace(content) == "" {
		return s.Send(EventChatError, map[string]any{"error": "No message to retry"})
	}
	g.startChat(s, content)
	return nil
}

// handleChatStop cancels one in-flight stream by messageId, or every
// stream of the session when the payload names none.
func (g *Gateway) handleChatStop(s *Session, payload map[string]any) error {
	s.cancelChat(payloadString(payload, "messageId"))
	return nil
}

// handleAgentStop cancels all in-flight streams for the session.
func (g *Gateway) handleAgentStop(s *Session, payload map[string]any) error {
	s.cancelChat("")
	return nil
}

// handleAgentConfigure records per-session agent preferences. The task
// type is picked up by subsequent chat:send dispatches; everything else is
// held for collaborators that read session metadata.
func (g *Gateway) handleAgentConfigure(s *Session, payload map[string]any) error {
	for key, value := range payload {
		if key == "taskType" {
			s.SetMetadata(metadataTaskType, value)
			continue
		}
		s.SetMetadata(key, value)
	}
	return s.Send(EventAgentConfigured, map[string]any{"sessionId": s.ID})
}

func (g *Gateway) startChat(s *Session, content string) {
	messageID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s.registerChat(messageID, cancel)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer cancel()
		defer s.unregisterChat(messageID)
		g.runChat(ctx, s, messageID, content)
	}()
}

// runChat drives one assistant turn: chat:stream:start, then chunks, then
// chat:stream:end with the assembled reply, then the final chat:message.
// A cancelled stream still ends cleanly with whatever content had arrived.
func (g *Gateway) runChat(ctx context.Context, s *Session, messageID, content string) {
	started := g.clock()
	if err := s.Send(EventChatStreamStart, map[string]any{"messageId": messageID}); err != nil {
		return
	}

	if g.agent == nil || g.agent.DemoMode() {
		g.runDemoChat(ctx, s, messageID, content)
		return
	}

	var (
		assembled strings.Builder
		tools     = newToolTracker(s, messageID)
	)
	taskType, _ := s.Metadata(metadataTaskType)
	taskHint, _ := taskType.(string)

	result, err := g.agent.Chat(ctx, content, ChatOptions{
		Stream:   true,
		TaskType: taskHint,
		Metadata: map[string]string{"session_id": s.ID, "message_id": messageID},
		OnChunk: func(chunk *providers.StreamChunk) {
			if chunk.Delta != "" {
				assembled.WriteString(chunk.Delta)
				_ = s.Send(EventChatStreamChunk, map[string]any{
					"messageId": messageID,
					"chunk":     chunk.Delta,
				})
			}
			tools.observe(chunk)
		},
	})

	stopped := ctx.Err() != nil
	if err != nil && !stopped {
		g.logger.Warn("chat failed", "session_id", s.ID, "message_id", messageID, "error", err)
		_ = s.Send(EventChatError, map[string]any{
			"messageId": messageID,
			"error":     err.Error(),
		})
		return
	}

	tools.finish()

	fullContent := assembled.String()
	if !stopped && result != nil && result.Content != "" {
		fullContent = result.Content
	}

	g.finishChat(s, messageID, fullContent, started, stopped)
}

// runDemoChat synthesizes a reply and streams it word by word on the demo
// cadence, producing the same event sequence as a real provider stream.
func (g *Gateway) runDemoChat(ctx context.Context, s *Session, messageID, content string) {
	started := g.clock()
	words := strings.Fields(demoResponse(content))

	var assembled strings.Builder
	stopped := false
	for i, word := range words {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		assembled.WriteString(chunk)
		if err := s.Send(EventChatStreamChunk, map[string]any{
			"messageId": messageID,
			"chunk":     chunk,
		}); err != nil {
			return
		}
		g.sleep(demoChunkInterval)
	}

	g.finishChat(s, messageID, assembled.String(), started, stopped)
}

func (g *Gateway) finishChat(s *Session, messageID, fullContent string, started time.Time, stopped bool) {
	_ = s.Send(EventChatStreamEnd, map[string]any{
		"messageId":   messageID,
		"fullContent": fullContent,
		"stopped":     stopped,
	})
	_ = s.Send(EventChatMessage, map[string]any{
		"message": map[string]any{
			"id":        messageID,
			"role":      providers.RoleAssistant,
			"content":   fullContent,
			"timestamp": started.UTC().Format(time.RFC3339),
		},
	})
}

func demoResponse(content string) string {
	return "Demo mode is active because no provider API key is configured. " +
		"Add a key to a provider definition to get real completions. " +
		"You said: " + content
}

// handleToolCancel publishes the cancellation onto the bus for whatever
// runtime owns the tool call; the gateway itself executes no tools.
func (g *Gateway) handleToolCancel(s *Session, payload map[string]any) error {
	toolCallID := payloadString(payload, "toolCallId")
	if toolCallID == "" {
		return errors.New("toolCallId is required")
	}
	return g.emitBus("gateway.tool.cancel", "ws:"+s.ID, map[string]any{
		"toolCallId": toolCallID,
		"sessionId":  s.ID,
	})
}

// toolTracker emits tool:start once per tool call id, on the first chunk
// that mentions it, and tool:end for each started call when the stream
// completes.
type toolTracker struct {
	session   *Session
	messageID string
	order     []string
	names     map[string]string
}

func newToolTracker(s *Session, messageID string) *toolTracker {
	return &toolTracker{session: s, messageID: messageID, names: make(map[string]string)}
}

func (t *toolTracker) observe(chunk *providers.StreamChunk) {
	for _, call := range chunk.ToolCalls {
		if call.ID == "" {
			continue
		}
		if _, seen := t.names[call.ID]; seen {
			if call.Function.Name != "" && t.names[call.ID] == "" {
				t.names[call.ID] = call.Function.Name
			}
			continue
		}
		t.order = append(t.order, call.ID)
		t.names[call.ID] = call.Function.Name
		_ = t.session.Send(EventToolStart, map[string]any{
			"messageId":  t.messageID,
			"toolCallId": call.ID,
			"name":       call.Function.Name,
			"status":     "running",
		})
	}
}

func (t *toolTracker) finish() {
	for _, id := range t.order {
		_ = t.session.Send(EventToolEnd, map[string]any{
			"messageId":  t.messageID,
			"toolCallId": id,
			"name":       t.names[id],
			"status":     "completed",
		})
	}
}
