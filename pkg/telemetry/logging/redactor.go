package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks secret material in log output: provider API keys, bearer
// tokens, and key=value assignments of credential-looking fields.
//
// Redactor is safe for concurrent use.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// sensitiveKeys are attribute-key substrings whose string values are masked
// outright, whatever they contain.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
}

// NewRedactor returns a Redactor with the built-in secret patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			// Provider-style API keys (sk-..., sk-ant-...)
			{regexp.MustCompile(`sk-[a-zA-Z0-9\-_]+`), "sk-***"},
			// Bearer tokens in header dumps
			{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer ***"},
			// key=value / key: value assignments of credential fields
			{regexp.MustCompile(`(?i)(api[-_]?key|token|password|secret)([=:]\s*)\S+`), "$1$2***"},
		},
	}
}

// RedactString masks every secret pattern found in s.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// isSensitiveKey reports whether an attribute key names credential
// material.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// maskValue hides a sensitive value, keeping a short prefix as a debugging
// hint when the value is long enough for the prefix to be harmless.
func maskValue(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}

// redactHandler wraps a slog.Handler and rewrites string attribute values
// and record messages before they reach the wrapped handler. Attributes
// attached via With are rewritten once, at attach time.
type redactHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func newRedactHandler(inner slog.Handler) *redactHandler {
	return &redactHandler{inner: inner, redactor: NewRedactor()}
}

// Enabled implements slog.Handler.
func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &redactHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup implements slog.Handler.
func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// redactAttr rewrites one attribute. Sensitive keys are masked outright;
// other string values only have embedded secret patterns replaced. Groups
// recurse.
func (h *redactHandler) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(a.Value.String()))
		}
		return slog.String(a.Key, h.redactor.RedactString(a.Value.String()))
	case slog.KindGroup:
		members := a.Value.Group()
		out := make([]slog.Attr, len(members))
		for i, m := range members {
			out[i] = h.redactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	default:
		return a
	}
}
