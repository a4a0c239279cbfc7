package google

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

// streamReader reads SSE fragments from a streamGenerateContent response.
// Each data line carries a complete generateResponse; there is no done
// sentinel, the upstream simply closes the connection. One fragment can
// hold several parts, so decoded chunks queue in pending until read.
type streamReader struct {
	provider *providers.HTTPProvider
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	closed   bool

	id           string
	model        string
	finishReason string
	usage        *providers.TokenUsage
	callSeq      int

	pending []*providers.StreamChunk
}

// newStreamReader opens the SSE stream.
func newStreamReader(ctx context.Context, provider *providers.HTTPProvider, url string, req *generateRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, providers.WrapInternal(provider.GetName(), "failed to marshal request", err)
	}

	resp, err := provider.DoRequest(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	// Fragments carrying inline image data arrive as one very long line.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	return &streamReader{
		provider: provider,
		resp:     resp.Body,
		scanner:  scanner,
	}, nil
}

// Read reads the next chunk from the stream. It returns errStreamDone after
// delivering the terminal chunk. Malformed fragments are skipped silently.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed {
		return nil, errStreamDone
	}

	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}

		select {
		case <-ctx.Done():
			return nil, streamCtxError(s.provider, ctx)
		default:
		}

		fragment, err := s.readFragment()
		if err != nil {
			if err == io.EOF {
				return s.terminalChunk(), nil
			}
			return nil, wrapStreamErr(s.provider, ctx, err)
		}
		if fragment == nil {
			continue
		}

		s.apply(fragment)
	}
}

// readFragment reads one data line and decodes it. It returns (nil, nil)
// for fragments that fail to parse, and io.EOF when the upstream closes.
func (s *streamReader) readFragment() (*generateResponse, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			// Blank event separators and other SSE fields.
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		fragment := &generateResponse{}
		if err := json.Unmarshal([]byte(data), fragment); err != nil {
			slog.Debug("skipping malformed stream fragment",
				"provider", s.provider.GetName(),
				"error", err,
			)
			return nil, nil
		}
		return fragment, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// apply folds one fragment into the reader state and queues the chunks it
// yields. Usage and finish reason are withheld for the terminal chunk.
func (s *streamReader) apply(fragment *generateResponse) {
	if fragment.ResponseID != "" {
		s.id = fragment.ResponseID
	}
	if fragment.ModelVersion != "" {
		s.model = fragment.ModelVersion
	}
	if fragment.UsageMetadata != nil {
		// Counts are cumulative; the last fragment wins.
		s.usage = &providers.TokenUsage{
			PromptTokens:     fragment.UsageMetadata.PromptTokenCount,
			CompletionTokens: fragment.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      fragment.UsageMetadata.TotalTokenCount,
			CachedTokens:     fragment.UsageMetadata.CachedContentTokenCount,
		}
	}

	if len(fragment.Candidates) == 0 {
		return
	}
	cand := fragment.Candidates[0]
	if cand.FinishReason != "" {
		s.finishReason = normalizeFinishReason(cand.FinishReason)
	}

	var calls []providers.ToolCall
	for i := range cand.Content.Parts {
		part := &cand.Content.Parts[i]
		switch {
		case part.FunctionCall != nil:
			call, err := toolCallFromPart(part, s.callSeq)
			if err != nil {
				slog.Debug("skipping malformed function call",
					"provider", s.provider.GetName(),
					"error", err,
				)
				continue
			}
			s.callSeq++
			calls = append(calls, *call)

		case part.Thought && part.Text != "":
			s.pending = append(s.pending, &providers.StreamChunk{
				ID:       s.id,
				Model:    s.model,
				Delta:    part.Text,
				Metadata: map[string]any{"type": "thinking"},
			})

		case part.Text != "":
			s.pending = append(s.pending, &providers.StreamChunk{
				ID:    s.id,
				Model: s.model,
				Delta: part.Text,
			})
		}
	}

	if len(calls) > 0 {
		s.pending = append(s.pending, &providers.StreamChunk{
			ID:        s.id,
			Model:     s.model,
			ToolCalls: calls,
		})
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
