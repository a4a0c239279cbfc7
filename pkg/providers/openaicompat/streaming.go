package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
)

// errStreamDone signals that the terminal chunk has been delivered and the
// stream ended cleanly.
var errStreamDone = errors.New("stream done")

// streamReader reads Server-Sent Events (SSE) from a chat completions
// stream: "data: {json}" lines terminated by "data: [DONE]".
type streamReader struct {
	provider *providers.HTTPProvider
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	closed   bool

	// finishReason and usage arrive on late data chunks but belong on the
	// terminal chunk only
	finishReason string
	usage        *providers.TokenUsage
	id           string
	model        string
}

// newStreamReader opens the SSE stream.
func newStreamReader(ctx context.Context, provider *providers.HTTPProvider, url string, req *chatRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, providers.WrapInternal(provider.GetName(), "failed to marshal request", err)
	}

	resp, err := provider.DoRequest(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	return &streamReader{
		provider: provider,
		resp:     resp.Body,
		scanner:  bufio.NewScanner(resp.Body),
	}, nil
}

// Read reads the next chunk from the stream. It returns errStreamDone after
// delivering the terminal chunk. Malformed fragments are skipped silently.
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

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, wrapStreamErr(s.provider, ctx, err)
			}
			// Upstream closed without [DONE]; still terminate cleanly.
			return s.terminalChunk(), nil
		}

		line := s.scanner.Text()
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return s.terminalChunk(), nil
		}

		var wireChunk chatStreamResponse
		if err := json.Unmarshal([]byte(data), &wireChunk); err != nil {
			slog.Debug("skipping malformed stream fragment",
				"provider", s.provider.GetName(),
				"error", err,
			)
			continue
		}

		if wireChunk.ID != "" {
			s.id = wireChunk.ID
		}
		if wireChunk.Model != "" {
			s.model = wireChunk.Model
		}
		if wireChunk.Usage != nil {
			s.usage = &providers.TokenUsage{
				PromptTokens:     wireChunk.Usage.PromptTokens,
				CompletionTokens: wireChunk.Usage.CompletionTokens,
				TotalTokens:      wireChunk.Usage.TotalTokens,
			}
		}
		if len(wireChunk.Choices) > 0 && wireChunk.Choices[0].FinishReason != "" {
			s.finishReason = normalizeFinishReason(wireChunk.Choices[0].FinishReason)
		}

		chunk := transformStreamChunk(&wireChunk)
		if chunk == nil || (chunk.Delta == "" && len(chunk.ToolCalls) == 0) {
			continue
		}

		return chunk, nil
	}
}

// terminalChunk builds the single Done chunk that ends a successful stream.
func (s *streamReader) terminalChunk() *providers.StreamChunk {
	s.closed = true
	finish := s.finishReason
	if finish == "" {
		finish = providers.FinishReasonStop
	}
	return &providers.StreamChunk{
		ID:           s.id,
		Model:        s.model,
		Done:         true,
		FinishReason: finish,
		Usage:        s.usage,
	}
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
