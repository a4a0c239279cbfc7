package bus

import (
	"context"
	"fmt"
	"sync"
)

// Tap is one stage of a hook chain. It may transform the payload; returning
// a nil payload keeps the current one.
type Tap func(ctx context.Context, payload map[string]any) (map[string]any, error)

type tapEntry struct {
	id  uint64
	tap Tap
}

// Hooks is the bus's request/response sub-bus. Unlike event subscribers,
// which fan out, taps form an awaited chain: CallAny runs them in
// registration order and threads the payload through each. Hook names live
// in their own namespace (conventionally "client:*"), distinct from event
// types.
//
// Hooks is safe for concurrent use.
type Hooks struct {
	mu     sync.RWMutex
	nextID uint64
	taps   map[string][]tapEntry
}

func newHooks() *Hooks {
	return &Hooks{taps: make(map[string][]tapEntry)}
}

// TapAny appends a tap to the named hook chain. The returned closure
// removes it and is idempotent.
func (h *Hooks) TapAny(name string, tap Tap) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.taps[name] = append(h.taps[name], tapEntry{id: id, tap: tap})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		taps := h.taps[name]
		for i := range taps {
			if taps[i].id == id {
				h.taps[name] = append(taps[:i], taps[i+1:]...)
				if len(h.taps[name]) == 0 {
					delete(h.taps, name)
				}
				return
			}
		}
	}
}

// CallAny runs the named hook chain, awaiting each tap in registration
// order and passing the (possibly transformed) payload along. The first tap
// error aborts the chain. A chain with no taps returns the payload
// unchanged.
func (h *Hooks) CallAny(ctx context.Context, name string, payload map[string]any) (map[string]any, error) {
	h.mu.RLock()
	taps := make([]Tap, len(h.taps[name]))
	for i, entry := range h.taps[name] {
		taps[i] = entry.tap
	}
	h.mu.RUnlock()

	for _, tap := range taps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		transformed, err := tap(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", name, err)
		}
		if transformed != nil {
			payload = transformed
		}
	}
	return payload, nil
}

// TapCount returns how many taps are registered on the named chain.
// Intended for tests and introspection.
func (h *Hooks) TapCount(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.taps[name])
}
