package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
)

// errStreamDone signals that the terminal chunk has been delivered and the
// stream ended cleanly.
var errStreamDone = errors.New("stream done")

// Streaming wire types.

// streamEvent represents one named SSE event. The delta field carries both
// content_block_delta and message_delta payloads.
type streamEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index,omitempty"`
	Message      *messagesResponse `json:"message,omitempty"`
	ContentBlock *contentBlock     `json:"content_block,omitempty"`
	Delta        *eventDelta       `json:"delta,omitempty"`
	Usage        *wireUsage        `json:"usage,omitempty"`
}

// eventDelta merges the delta shapes that share the "delta" key on the wire.
type eventDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// toolCallBuilder accumulates input_json_delta fragments for one tool_use
// block until its content_block_stop.
type toolCallBuilder struct {
	id   string
	name string
	args strings.Builder
}

// streamReader reads named SSE events from a messages stream. Tool-call
// arguments and thinking blocks arrive piecewise across events and are
// assembled here; usage and stop reason are withheld for the terminal chunk.
type streamReader struct {
	provider *providers.HTTPProvider
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	closed   bool

	id           string
	model        string
	finishReason string
	inputTokens  int
	outputTokens int
	cachedTokens int

	toolCalls map[int]*toolCallBuilder
	thinking  map[int]*providers.ThinkingBlock
	blocks    []providers.ThinkingBlock
}

// newStreamReader opens the SSE stream.
func newStreamReader(ctx context.Context, provider *providers.HTTPProvider, url string, req *messagesRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, providers.WrapInternal(provider.GetName(), "failed to marshal request", err)
	}

	resp, err := provider.DoRequest(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	return &streamReader{
		provider:  provider,
		resp:      resp.Body,
		scanner:   bufio.NewScanner(resp.Body),
		toolCalls: make(map[int]*toolCallBuilder),
		thinking:  make(map[int]*providers.ThinkingBlock),
	}, nil
}

// Read reads the next chunk from the stream. It returns errStreamDone after
// delivering the terminal chunk. Malformed events are skipped silently.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed {
		return nil, errStreamDone
	}

	for {
		select {
		case <-ctx.Done():
			return nil, streamCtxError(s.provider, ctx)
		default:
		}

		event, err := s.readEvent()
		if err != nil {
			if err == io.EOF {
				// Upstream closed without message_stop; still terminate
				// cleanly.
				return s.terminalChunk(), nil
			}
			return nil, wrapStreamErr(s.provider, ctx, err)
		}
		if event == nil {
			continue
		}

		if chunk := s.apply(event); chunk != nil {
			return chunk, nil
		}
	}
}

// readEvent reads one named SSE event. It returns (nil, nil) for events
// whose data fails to parse, and io.EOF when the upstream closes.
func (s *streamReader) readEvent() (*streamEvent, error) {
	var eventType string
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// A blank line terminates the event.
		if line == "" {
			if eventType != "" || data.Len() > 0 {
				break
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Other SSE fields (id, retry) are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}

	if eventType == "" && data.Len() == 0 {
		return nil, io.EOF
	}

	event := &streamEvent{}
	if data.Len() > 0 {
		if err := json.Unmarshal([]byte(data.String()), event); err != nil {
			slog.Debug("skipping malformed stream event",
				"provider", s.provider.GetName(),
				"event", eventType,
				"error", err,
			)
			return nil, nil
		}
	}
	if event.Type == "" {
		event.Type = eventType
	}

	return event, nil
}

// apply folds one event into the reader state, returning a chunk when the
// event yields one.
func (s *streamReader) apply(event *streamEvent) *providers.StreamChunk {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.id = event.Message.ID
			s.model = event.Message.Model
			s.inputTokens = event.Message.Usage.InputTokens
			s.cachedTokens = event.Message.Usage.CacheReadInputTokens
		}

	case "content_block_start":
		if event.ContentBlock == nil {
			break
		}
		switch event.ContentBlock.Type {
		case "tool_use":
			s.toolCalls[event.Index] = &toolCallBuilder{
				id:   event.ContentBlock.ID,
				name: event.ContentBlock.Name,
			}
		case "thinking":
			s.thinking[event.Index] = &providers.ThinkingBlock{Type: "thinking"}
		case "redacted_thinking":
			// Redacted blocks arrive complete; hold them for the terminal
			// chunk so they can be echoed next turn.
			s.thinking[event.Index] = &providers.ThinkingBlock{
				Type: "redacted_thinking",
				Data: event.ContentBlock.Data,
			}
		}

	case "content_block_delta":
		if event.Delta == nil {
			break
		}
		switch event.Delta.Type {
		case "text_delta":
			if event.Delta.Text != "" {
				return &providers.StreamChunk{
					ID:    s.id,
					Model: s.model,
					Delta: event.Delta.Text,
				}
			}
		case "input_json_delta":
			if b := s.toolCalls[event.Index]; b != nil {
				b.args.WriteString(event.Delta.PartialJSON)
			}
		case "thinking_delta":
			if blk := s.thinking[event.Index]; blk != nil {
				blk.Thinking += event.Delta.Thinking
			}
			if event.Delta.Thinking != "" {
				return &providers.StreamChunk{
					ID:       s.id,
					Model:    s.model,
					Delta:    event.Delta.Thinking,
					Metadata: map[string]any{"type": "thinking"},
				}
			}
		case "signature_delta":
			if blk := s.thinking[event.Index]; blk != nil {
				blk.Signature += event.Delta.Signature
			}
		}

	case "content_block_stop":
		if b := s.toolCalls[event.Index]; b != nil {
			delete(s.toolCalls, event.Index)
			return s.toolCallChunk(b)
		}
		if blk := s.thinking[event.Index]; blk != nil {
			delete(s.thinking, event.Index)
			s.blocks = append(s.blocks, *blk)
		}

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			s.finishReason = normalizeStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			s.outputTokens = event.Usage.OutputTokens
		}

	case "message_stop":
		return s.terminalChunk()

	case "ping":
		// Keep-alive.
	}

	return nil
}

// toolCallChunk yields one assembled tool call.
func (s *streamReader) toolCallChunk(b *toolCallBuilder) *providers.StreamChunk {
	args := b.args.String()
	if args == "" {
		args = "{}"
	}
	return &providers.StreamChunk{
		ID:    s.id,
		Model: s.model,
		ToolCalls: []providers.ToolCall{{
			ID:   b.id,
			Type: providers.ToolTypeFunction,
			Function: providers.FunctionCall{
				Name:      desanitizeToolName(b.name),
				Arguments: args,
			},
		}},
	}
}

// terminalChunk builds the single Done chunk that ends a successful stream,
// carrying usage, finish reason and accumulated thinking blocks.
func (s *streamReader) terminalChunk() *providers.StreamChunk {
	s.closed = true

	finish := s.finishReason
	if finish == "" {
		finish = providers.FinishReasonStop
	}

	chunk := &providers.StreamChunk{
		ID:           s.id,
		Model:        s.model,
		Done:         true,
		FinishReason: finish,
	}

	if s.inputTokens > 0 || s.outputTokens > 0 {
		chunk.Usage = &providers.TokenUsage{
			PromptTokens:     s.inputTokens,
			CompletionTokens: s.outputTokens,
			TotalTokens:      s.inputTokens + s.outputTokens,
			CachedTokens:     s.cachedTokens,
		}
	}

	if blocks := s.collectThinking(); len(blocks) > 0 {
		chunk.Metadata = map[string]any{providers.MetadataThinkingBlocks: blocks}
	}

	return chunk
}

// collectThinking returns completed thinking blocks plus any the upstream
// never closed, in block-index order.
func (s *streamReader) collectThinking() []providers.ThinkingBlock {
	if len(s.thinking) > 0 {
		idxs := make([]int, 0, len(s.thinking))
		for i := range s.thinking {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		for _, i := range idxs {
			s.blocks = append(s.blocks, *s.thinking[i])
		}
		s.thinking = nil
	}
	return s.blocks
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	return s.resp.Close()
}

// streamCtxError maps a cancelled stream context onto the error taxonomy.
func streamCtxError(provider *providers.HTTPProvider, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return providers.NewTimeoutError(provider.GetName(), provider.GetConfig().Timeout)
	}
	return providers.WrapInternal(provider.GetName(), "stream cancelled", context.Canceled)
}

// wrapStreamErr classifies read failures, distinguishing deadline aborts
// from transport errors.
func wrapStreamErr(provider *providers.HTTPProvider, ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return streamCtxError(provider, ctx)
	}
	return providers.WrapInternal(provider.GetName(), "failed to read stream", err)
}
