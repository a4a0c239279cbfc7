package bus

import (
	"errors"
	"fmt"
	"strings"
)

// Pattern limits. Patterns are dot-segmented globs where * matches exactly
// one segment.
const (
	// MaxPatternLength caps the total pattern length in bytes.
	MaxPatternLength = 100

	// MaxPatternSegments caps the number of dot segments.
	MaxPatternSegments = 6
)

// Pattern validation errors, matchable with errors.Is().
var (
	// ErrPatternEmpty is returned for an empty pattern.
	ErrPatternEmpty = errors.New("pattern is empty")

	// ErrPatternTooLong is returned when a pattern exceeds MaxPatternLength.
	ErrPatternTooLong = fmt.Errorf("pattern exceeds %d characters", MaxPatternLength)

	// ErrPatternTooDeep is returned when a pattern exceeds
	// MaxPatternSegments dot segments.
	ErrPatternTooDeep = fmt.Errorf("pattern exceeds %d segments", MaxPatternSegments)

	// ErrPatternCharset is returned when a pattern contains characters
	// outside [A-Za-z0-9_\-.*].
	ErrPatternCharset = errors.New("pattern contains invalid characters")
)

// ValidatePattern checks a subscription pattern against the bus's limits:
// non-empty, at most MaxPatternLength bytes, at most MaxPatternSegments dot
// segments, characters restricted to [A-Za-z0-9_\-.*].
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return ErrPatternEmpty
	}
	if len(pattern) > MaxPatternLength {
		return ErrPatternTooLong
	}
	if strings.Count(pattern, ".")+1 > MaxPatternSegments {
		return ErrPatternTooDeep
	}
	for i := 0; i < len(pattern); i++ {
		if !patternByteOK(pattern[i]) {
			return ErrPatternCharset
		}
	}
	return nil
}

func patternByteOK(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '.' || c == '*':
		return true
	}
	return false
}

// MatchPattern reports whether an event type matches a dot-segmented glob
// pattern. * matches exactly one segment, so "pulse.*" matches
// "pulse.activity" but neither "pulse" nor "pulse.a.b".
func MatchPattern(pattern, eventType string) bool {
	return matchSegments(strings.Split(pattern, "."), eventType)
}

func matchSegments(patternSegments []string, eventType string) bool {
	typeSegments := strings.Split(eventType, ".")
	if len(typeSegments) != len(patternSegments) {
		return false
	}
	for i, seg := range patternSegments {
		if seg == "*" {
			continue
		}
		if seg != typeSegments[i] {
			return false
		}
	}
	return true
}
